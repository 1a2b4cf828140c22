package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tonycerq/tonycerq-comfyui/utils/logfmt"
)

// DefaultLogBufferSize is the number of recent log lines retained for the
// dashboard's initial view.
const DefaultLogBufferSize = 500

// LogBuffer is a bounded FIFO of the most recent raw log lines. Consecutive
// identical lines are collapsed to a single entry; older duplicates are kept.
type LogBuffer struct {
	mu    sync.RWMutex
	lines []string
	max   int
}

// NewLogBuffer creates a buffer bounded at max entries.
func NewLogBuffer(max int) *LogBuffer {
	if max <= 0 {
		max = DefaultLogBufferSize
	}
	return &LogBuffer{
		lines: make([]string, 0, max),
		max:   max,
	}
}

// Append adds a raw line, evicting the oldest entry once the bound is
// reached. A line equal to the immediately preceding entry is ignored.
func (b *LogBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.lines); n > 0 && b.lines[n-1] == line {
		return
	}

	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = append(b.lines[:0], b.lines[1:]...)
	}
}

// Len returns the current number of buffered lines.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Lines returns a copy of the buffered raw lines in insertion order.
func (b *LogBuffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Snapshot renders the current contents in Docker-style HTML, prefixed with a
// synthetic header stating the entry count. The view is a consistent
// point-in-time read; appends racing a snapshot never tear it.
func (b *LogBuffer) Snapshot() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	header := fmt.Sprintf(
		"<div class='log-line'><span class='log-timestamp'>%s</span><span class='log-info'>Dashboard - Last %d lines</span></div>\n",
		time.Now().Format("2006-01-02 15:04:05"), len(b.lines))

	if len(b.lines) == 0 {
		return header + "<div class='log-line'><span class='log-info'>No logs yet.</span></div>"
	}

	rendered := make([]string, len(b.lines))
	for i, line := range b.lines {
		rendered[i] = logfmt.Render(line)
	}
	return header + strings.Join(rendered, "\n")
}
