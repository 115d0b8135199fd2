// Package telemetry is the engine's asynchronous logger: writers enqueue
// onto a buffered channel and a single goroutine drains to stdout while
// mirroring into a bounded ring. The ring backs the /debug/logs endpoint.
package telemetry

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelDebug Level = "DEBUG"
	LevelTrace Level = "TRACE"
)

const DefaultRingSize = 2000

var (
	enableDebug atomic.Bool
	enableTrace atomic.Bool

	logCh chan entry
	once  sync.Once

	ringMu      sync.Mutex
	ring        []entry
	ringNext    int
	ringWrapped bool
)

type entry struct {
	at    time.Time
	level Level
	msg   string
}

// Start spins up the drain goroutine. Safe to call more than once; only
// the first call takes effect. ringSize <= 0 selects the default.
func Start(ringSize int) {
	once.Do(func() {
		if ringSize <= 0 {
			ringSize = DefaultRingSize
		}
		logCh = make(chan entry, 8192)
		ring = make([]entry, ringSize)

		go func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "telemetry panic: %v\n", r)
				}
			}()
			for e := range logCh {
				ringMu.Lock()
				ring[ringNext] = e
				ringNext = (ringNext + 1) % len(ring)
				if ringNext == 0 {
					ringWrapped = true
				}
				ringMu.Unlock()

				fmt.Printf("%s [%s] %s\n",
					e.at.Format("2006/01/02 15:04:05.000"), e.level, e.msg)
			}
		}()
	})
}

func Stop() {
	if logCh != nil {
		close(logCh)
	}
}

func EnableDebug(on bool) { enableDebug.Store(on) }
func DebugOn() bool       { return enableDebug.Load() }

func EnableTrace(on bool) { enableTrace.Store(on) }
func TraceOn() bool       { return enableTrace.Load() }

// Non-blocking enqueue; drops when saturated rather than stalling the
// pipeline's hot path.
func enqueue(level Level, msg string) {
	e := entry{at: time.Now(), level: level, msg: msg}
	select {
	case logCh <- e:
	default:
		fmt.Fprintf(os.Stderr, "telemetry: buffer full, dropping: %s\n", msg)
	}
}

func Infof(format string, args ...any) {
	enqueue(LevelInfo, fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...any) {
	enqueue(LevelWarn, fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	enqueue(LevelError, fmt.Sprintf(format, args...))
}

// Debugf formats only when debug is enabled (zero cost when off).
func Debugf(format string, args ...any) {
	if !enableDebug.Load() {
		return
	}
	enqueue(LevelDebug, fmt.Sprintf(format, args...))
}

// Tracef is for very noisy spots; off by default.
func Tracef(format string, args ...any) {
	if !enableTrace.Load() {
		return
	}
	enqueue(LevelTrace, fmt.Sprintf(format, args...))
}

// Tail returns up to n most recent lines in chronological order.
func Tail(n int) []string {
	if n <= 0 {
		return nil
	}
	ringMu.Lock()
	defer ringMu.Unlock()

	size := len(ring)
	if size == 0 {
		return nil
	}
	if n > size {
		n = size
	}

	available := size
	if !ringWrapped {
		available = ringNext
	}
	if available == 0 {
		return nil
	}
	if n > available {
		n = available
	}

	out := make([]string, 0, n)
	start := ringNext - 1
	if start < 0 {
		start = size - 1
	}
	for i := 0; i < n; i++ {
		idx := (start - i + size) % size
		e := ring[idx]
		if !e.at.IsZero() {
			out = append(out, fmt.Sprintf("%s [%s] %s",
				e.at.Format("15:04:05.000"), e.level, e.msg))
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
