package logging

import (
	"database/sql"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the bot logger: a console core, plus a core that copies every
// entry into the Postgres logs table when a connection is supplied.
func New(conn *sql.DB) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zapcore.InfoLevel,
	)

	core := console
	if conn != nil {
		core = zapcore.NewTee(console, newDBCore(conn, encCfg))
	}

	return zap.New(core).Sugar()
}

// dbCore writes log entries to the logs table. Insert failures are dropped:
// the log sink must never take the bot down with it.
type dbCore struct {
	zapcore.LevelEnabler
	conn *sql.DB
	enc  zapcore.Encoder
}

func newDBCore(conn *sql.DB, encCfg zapcore.EncoderConfig) zapcore.Core {
	// Timestamp and level get their own columns; keep them out of the message.
	encCfg.TimeKey = zapcore.OmitKey
	encCfg.LevelKey = zapcore.OmitKey
	return &dbCore{
		LevelEnabler: zapcore.InfoLevel,
		conn:         conn,
		enc:          zapcore.NewConsoleEncoder(encCfg),
	}
}

func (c *dbCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &dbCore{
		LevelEnabler: c.LevelEnabler,
		conn:         c.conn,
		enc:          c.enc.Clone(),
	}
	for i := range fields {
		fields[i].AddTo(clone.enc)
	}
	return clone
}

func (c *dbCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *dbCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	message := ent.Message
	if len(fields) > 0 {
		if buf, err := c.enc.EncodeEntry(zapcore.Entry{Message: ent.Message}, fields); err == nil {
			message = strings.TrimSpace(buf.String())
			buf.Free()
		}
	}

	_, _ = c.conn.Exec(
		`INSERT INTO logs (timestamp, level, message) VALUES ($1, $2, $3)`,
		time.Now(), ent.Level.CapitalString(), message,
	)
	return nil
}

func (c *dbCore) Sync() error {
	return nil
}
