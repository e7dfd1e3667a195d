package abort

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
)

// ErrAborted is the cancellation cause recorded when the user aborts a run.
var ErrAborted = errors.New("search aborted by user")

// Listener watches an input stream for an abort key.
type Listener struct {
	keys   []string
	cancel context.CancelCauseFunc
	lines  atomic.Int64
}

// NewListener returns a listener that calls cancel with ErrAborted when a
// line matches one of keys. Keys compare case-insensitively after trimming
// spaces; with no keys any line aborts.
func NewListener(keys []string, cancel context.CancelCauseFunc) *Listener {
	return &Listener{keys: keys, cancel: cancel}
}

// Listen reads lines from in until one matches a key, then cancels and
// returns true. It returns false on EOF or read error without cancelling.
//
// Listen blocks in Read and cannot be interrupted, so callers start it on its
// own goroutine and never wait for it.
func (l *Listener) Listen(in io.Reader) bool {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		l.lines.Add(1)
		if matches(scanner.Text(), l.keys) {
			l.cancel(ErrAborted)
			return true
		}
	}
	return false
}

// Lines returns the number of lines read so far. A terminal in line mode
// echoes each of them, one row apiece.
func (l *Listener) Lines() int {
	return int(l.lines.Load())
}

func matches(line string, keys []string) bool {
	if len(keys) == 0 {
		return true
	}
	line = strings.TrimSpace(line)
	for _, k := range keys {
		if strings.EqualFold(line, strings.TrimSpace(k)) {
			return true
		}
	}
	return false
}

// Aborted reports whether ctx was cancelled by Listen.
func Aborted(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrAborted)
}
