package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tonycerq/tonycerq-comfyui/core/models"
	"github.com/tonycerq/tonycerq-comfyui/utils/logfmt"
)

// Tailer continuously follows the node's append-only log file, pushing each
// new line into the LogBuffer and broadcasting it to subscribers. It runs on
// its own goroutine so a blocked HTTP path never stalls log delivery.
//
// The design polls the file size rather than using OS change notification,
// trading ~100ms of latency for portability. A file size below the stored
// offset means the file was truncated or rotated in place, and the cursor
// resets to the beginning.
type Tailer struct {
	path     string
	buffer   *LogBuffer
	registry *Registry
	poll     time.Duration
	backoff  time.Duration

	offset int64
}

// NewTailer creates a tailer for the given log file.
func NewTailer(path string, buffer *LogBuffer, registry *Registry, poll, backoff time.Duration) *Tailer {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Tailer{
		path:     path,
		buffer:   buffer,
		registry: registry,
		poll:     poll,
		backoff:  backoff,
	}
}

// Run follows the log file until the context is cancelled. It never gives up
// on I/O errors: each failure is logged and retried after a backoff, keeping
// the cursor unless a later size check indicates truncation.
func (t *Tailer) Run(ctx context.Context) {
	log.Printf("Log tailer started on %s", t.path)

	for {
		if err := t.follow(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Error following log file: %v", err)
		}

		select {
		case <-ctx.Done():
			log.Println("Log tailer stopped")
			return
		case <-time.After(t.backoff):
		}
	}
}

// follow opens the file and consumes new content until an I/O error or
// context cancellation.
func (t *Tailer) follow(ctx context.Context) error {
	if err := t.ensureFile(); err != nil {
		return err
	}

	file, err := os.Open(t.path)
	if err != nil {
		return err
	}
	defer file.Close()

	for {
		lines, err := t.scan(file)
		if err != nil {
			return err
		}

		for _, line := range lines {
			t.emit(line)
		}

		if len(lines) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.poll):
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	}
}

// scan reads all complete lines appended since the stored offset and advances
// the cursor past them. A trailing partial line is left for the next scan so
// no line is split or duplicated. Truncation resets the cursor to 0.
func (t *Tailer) scan(file *os.File) ([]string, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	size := info.Size()
	if size < t.offset {
		// File was truncated, start from beginning
		t.offset = 0
	}
	if size == t.offset {
		return nil, nil
	}

	if _, err := file.Seek(t.offset, io.SeekStart); err != nil {
		return nil, err
	}

	data := make([]byte, size-t.offset)
	n, err := io.ReadFull(file, data)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	data = data[:n]

	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		// No complete line yet; keep the cursor so the partial line is
		// re-read once its newline arrives.
		return nil, nil
	}

	t.offset += int64(end + 1)
	return strings.Split(string(data[:end]), "\n"), nil
}

// emit pushes one raw line into the buffer and broadcasts its rendered form.
// Empty lines are dropped.
func (t *Tailer) emit(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}

	t.buffer.Append(line)
	t.registry.Broadcast(models.NewLogLineEvent(logfmt.RenderInline(line)))
}

// ensureFile creates the log file and its parent directories when absent so
// following can start at offset 0 before the producer writes anything.
func (t *Tailer) ensureFile() error {
	if _, err := os.Stat(t.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return err
	}

	file, err := os.OpenFile(t.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	return file.Close()
}
