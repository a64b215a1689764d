package logging

import (
	"database/sql/driver"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesToLogsTable(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("INSERT INTO logs").
		WithArgs(sqlmock.AnyArg(), "INFO", "bot is ready").
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := New(conn)
	log.Info("bot is ready")

	assert.NoError(t, mock.ExpectationsWereMet())
}

type containsArg string

func (c containsArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && strings.Contains(s, string(c))
}

func TestLoggerIncludesFieldsInMessage(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("INSERT INTO logs").
		WithArgs(sqlmock.AnyArg(), "ERROR", containsArg("af-tickets")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := New(conn)
	log.Errorw("job failed", "job", "af-tickets")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoggerSurvivesInsertFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("INSERT INTO logs").
		WillReturnError(assert.AnError)

	log := New(conn)
	assert.NotPanics(t, func() { log.Info("store went away") })
}

func TestLoggerWithoutDatabase(t *testing.T) {
	log := New(nil)
	assert.NotPanics(t, func() { log.Info("console only") })
}
