package monitor

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mtx sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.String()
}

func TestReportListsComponents(t *testing.T) {
	w := New(time.Hour, nil)
	defer w.Close()
	s := w.Register("task")
	s.SetOK(false)
	w.Register("clock")

	report := w.Report(time.Now())
	assert.Less(t, strings.Index(report, "component[clock]"), strings.Index(report, "component[task]"))
	assert.Contains(t, report, "ok: false")
	assert.Same(t, s, w.Register("task"))

	w.Unregister("task")
	assert.NotContains(t, w.Report(time.Now()), "component[task]")
}

func TestElapsedSinceTouch(t *testing.T) {
	w := New(time.Hour, nil)
	defer w.Close()
	s := w.Register("task")
	now := time.Now()
	s.Touch()
	assert.Less(t, s.Elapsed(now.Add(time.Second)), 2*time.Second)
	assert.GreaterOrEqual(t, s.Elapsed(now.Add(time.Second)), 900*time.Millisecond)
}

func TestWatchdogWritesPeriodically(t *testing.T) {
	out := &syncBuffer{}
	w := New(5*time.Millisecond, out)
	w.Register("task")
	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "WATCHDOG") >= 2
	}, time.Second, 5*time.Millisecond)
	w.Close()
	w.Close()
}
