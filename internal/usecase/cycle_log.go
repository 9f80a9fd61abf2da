package usecase

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/valyala/bytebufferpool"
)

// cycleLog collects the human-readable trace of one cycle. Every line is
// copied to the optional sink as soon as it is written.
type cycleLog struct {
	mu   sync.Mutex
	sink io.Writer
	buf  *bytebufferpool.ByteBuffer
	now  func() time.Time
}

func newCycleLog(sink io.Writer, now func() time.Time) *cycleLog {
	return &cycleLog{
		sink: sink,
		buf:  bytebufferpool.Get(),
		now:  now,
	}
}

func (l *cycleLog) Logf(format string, args ...any) {
	line := l.now().UTC().Format("15:04:05.000") + " " + fmt.Sprintf(format, args...) + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf == nil {
		return
	}
	_, _ = l.buf.WriteString(line)
	if l.sink != nil {
		// a gone client must not abort the cycle
		_, _ = io.WriteString(l.sink, line)
	}
}

func (l *cycleLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf == nil {
		return ""
	}
	return l.buf.String()
}

func (l *cycleLog) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf != nil {
		bytebufferpool.Put(l.buf)
		l.buf = nil
	}
}
