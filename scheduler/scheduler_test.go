package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type runLog struct {
	mu   sync.Mutex
	runs []string
	errs map[string]error
	done chan struct{}
}

func newRunLog() *runLog {
	return &runLog{errs: make(map[string]error), done: make(chan struct{}, 64)}
}

func (l *runLog) fn(jobName string, firedAt time.Time, err error) {
	l.mu.Lock()
	l.runs = append(l.runs, jobName)
	l.errs[jobName] = err
	l.mu.Unlock()
	l.done <- struct{}{}
}

func (l *runLog) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-l.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %d job completions", n)
		}
	}
}

func (l *runLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.runs...)
}

func TestTickFiresOnlyMatchingJobs(t *testing.T) {
	log := newRunLog()
	s := New(zaptest.NewLogger(t).Sugar(), WithRunFunc(log.fn))

	s.Add("daily-chart", DailyAt(17, 31), func(context.Context) error { return nil })
	s.Add("weekly-missed", WeeklyAt(time.Sunday, 17, 31), func(context.Context) error { return nil })

	// Monday 17:31: only the daily job matches.
	s.Tick(context.Background(), at(2, 17, 31))
	log.wait(t, 1)
	assert.Equal(t, []string{"daily-chart"}, log.names())

	// Sunday 17:31: both match, order between them unspecified.
	s.Tick(context.Background(), at(1, 17, 31))
	log.wait(t, 2)
	assert.ElementsMatch(t, []string{"daily-chart", "daily-chart", "weekly-missed"}, log.names())
}

func TestTickFiresAtMostOncePerMatchingMinute(t *testing.T) {
	var fired atomic.Int32
	log := newRunLog()
	s := New(zaptest.NewLogger(t).Sugar(), WithRunFunc(log.fn))
	s.Add("daily", DailyAt(22, 31), func(context.Context) error {
		fired.Add(1)
		return nil
	})

	// A full simulated day of minute ticks.
	for minute := 0; minute < 24*60; minute++ {
		s.Tick(context.Background(), at(2, 0, 0).Add(time.Duration(minute)*time.Minute))
	}
	log.wait(t, 1)

	assert.Equal(t, int32(1), fired.Load())
}

func TestBusyJobSkipsOverlappingOccurrence(t *testing.T) {
	release := make(chan struct{})
	var fired atomic.Int32

	log := newRunLog()
	s := New(zaptest.NewLogger(t).Sugar(), WithRunFunc(log.fn))

	everyMinute, err := ParseTrigger("* * * * *")
	require.NoError(t, err)
	s.Add("slow", everyMinute, func(context.Context) error {
		fired.Add(1)
		<-release
		return nil
	})

	s.Tick(context.Background(), at(1, 10, 0))
	// Give the first firing a moment to take the busy flag.
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Tick(context.Background(), at(1, 10, 1))
	assert.Equal(t, int32(1), fired.Load(), "overlapping occurrence must be skipped")

	close(release)
	log.wait(t, 1)

	s.Tick(context.Background(), at(1, 10, 2))
	log.wait(t, 1)
	assert.Equal(t, int32(2), fired.Load())
}

func TestJobFailuresAreIsolated(t *testing.T) {
	log := newRunLog()
	s := New(zaptest.NewLogger(t).Sugar(), WithRunFunc(log.fn))

	var goodRuns atomic.Int32
	s.Add("failing", DailyAt(9, 0), func(context.Context) error {
		return errors.New("store unreachable")
	})
	s.Add("panicking", DailyAt(9, 0), func(context.Context) error {
		panic("renderer blew up")
	})
	s.Add("good", DailyAt(9, 0), func(context.Context) error {
		goodRuns.Add(1)
		return nil
	})

	s.Tick(context.Background(), at(1, 9, 0))
	log.wait(t, 3)
	assert.Equal(t, int32(1), goodRuns.Load())

	log.mu.Lock()
	assert.Error(t, log.errs["failing"])
	assert.Error(t, log.errs["panicking"])
	assert.Contains(t, log.errs["panicking"].Error(), "panic in job panicking")
	assert.NoError(t, log.errs["good"])
	log.mu.Unlock()

	// The next matching tick still evaluates every job.
	s.Tick(context.Background(), at(2, 9, 0))
	log.wait(t, 3)
	assert.Equal(t, int32(2), goodRuns.Load())
}

func TestJobsSnapshot(t *testing.T) {
	now := at(2, 12, 0)
	s := New(zaptest.NewLogger(t).Sugar(), WithClock(func() time.Time { return now }))
	s.Add("daily-chart", DailyAt(17, 31), func(context.Context) error { return nil })

	statuses := s.Jobs()
	require.Len(t, statuses, 1)
	assert.Equal(t, "daily-chart", statuses[0].Name)
	assert.Equal(t, "31 17 * * *", statuses[0].Schedule)
	assert.Equal(t, at(2, 17, 31), statuses[0].NextFire)
	assert.True(t, statuses[0].LastFired.IsZero())
	assert.False(t, statuses[0].Busy)
}
