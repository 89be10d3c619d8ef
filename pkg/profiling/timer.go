// Package profiling times nested spans of a command run and wires CPU and
// heap profiles into cobra flags.
package profiling

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Stopper ends a span.
type Stopper interface {
	Stop()
}

type span struct {
	name     string
	start    time.Time
	duration time.Duration
	children []*span
}

// Profiler records a tree of spans. The zero value is disabled.
type Profiler struct {
	mu      sync.Mutex
	enabled bool
	root    *span
	stack   []*span
}

// Enable starts recording. Spans started before Enable are not kept.
func (p *Profiler) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled {
		return
	}
	p.enabled = true
	p.root = &span{name: "total", start: time.Now()}
	p.stack = []*span{p.root}
}

// Start opens a span under the innermost open one.
func (p *Profiler) Start(name string) Stopper {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return noop{}
	}
	s := &span{name: name, start: time.Now()}
	parent := p.stack[len(p.stack)-1]
	parent.children = append(parent.children, s)
	p.stack = append(p.stack, s)
	return &stopper{p: p, s: s}
}

type stopper struct {
	once sync.Once
	p    *Profiler
	s    *span
}

func (st *stopper) Stop() {
	st.once.Do(func() {
		st.p.mu.Lock()
		defer st.p.mu.Unlock()
		st.s.duration = time.Since(st.s.start)
		for i := len(st.p.stack) - 1; i > 0; i-- {
			if st.p.stack[i] == st.s {
				st.p.stack = st.p.stack[:i]
				break
			}
		}
	})
}

// Summarize writes the span tree with each span's share of the total.
func (p *Profiler) Summarize(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	total := time.Since(p.root.start)
	fmt.Fprintf(w, "timing: %v\n", total.Round(100*time.Microsecond))
	for _, child := range p.root.children {
		printSpan(w, child, 1, total)
	}
}

func printSpan(w io.Writer, s *span, depth int, total time.Duration) {
	share := 0.0
	if total > 0 {
		share = float64(s.duration) / float64(total) * 100
	}
	fmt.Fprintf(w, "%s- %s (%v, %.1f%%)\n", strings.Repeat("  ", depth), s.name, s.duration.Round(100*time.Microsecond), share)
	for _, child := range s.children {
		printSpan(w, child, depth+1, total)
	}
}

type noop struct{}

func (noop) Stop() {}

var defaultProfiler Profiler

// Start opens a span on the process-wide profiler.
func Start(name string) Stopper { return defaultProfiler.Start(name) }
