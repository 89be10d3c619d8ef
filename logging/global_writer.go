package logging

import (
	"io"
	"os"
	"sync"
)

// swapWriter delegates to a writer that can be replaced at runtime.
type swapWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.Write(p)
}

var stderrSink = &swapWriter{w: os.Stderr}

// SetGlobalOutput redirects the stderr sink of every logger, including ones
// already created. The `watch` command uses it to keep the stream readable.
func SetGlobalOutput(w io.Writer) {
	stderrSink.mu.Lock()
	defer stderrSink.mu.Unlock()
	stderrSink.w = w
}

// GetGlobalOutput returns the shared stderr sink.
func GetGlobalOutput() io.Writer {
	return stderrSink
}
