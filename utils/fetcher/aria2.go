// Package fetcher wraps the external transfer tools the node delegates
// downloads to. aria2c handles HTTP(S) sources; gdown handles Google Drive
// shares. Success is a zero exit status; failure carries the tool's captured
// output as diagnostic detail.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Aria2 invokes aria2c with resumable, multi-connection transfer settings.
type Aria2 struct {
	// Connections is the -x/-s parallel segment count per transfer.
	Connections int
}

// NewAria2 creates an aria2c runner using n parallel connections per file.
func NewAria2(n int) *Aria2 {
	if n <= 0 {
		n = 4
	}
	return &Aria2{Connections: n}
}

// Fetch downloads url into destDir. When filename is non-empty the output
// file takes that name, otherwise aria2c derives it from the URL. The
// returned detail is the tool's stdout; it is meaningful on failure.
//
// Retry (5 tries, 10s apart), connect timeout (30s) and stall timeout (600s)
// are delegated to aria2c itself; partial files are resumed with -c.
func (a *Aria2) Fetch(ctx context.Context, url, destDir, filename string) (string, error) {
	args := []string{
		"--console-log-level=error",
		"-c",
		"-x", fmt.Sprint(a.Connections),
		"-s", fmt.Sprint(a.Connections),
		"-k", "1M",
		"--file-allocation=none",
		"--optimize-concurrent-downloads=true",
		"--max-connection-per-server=16",
		"--min-split-size=1M",
		"--max-tries=5",
		"--retry-wait=10",
		"--connect-timeout=30",
		"--timeout=600",
		url,
		"-d", destDir,
	}
	if filename != "" {
		args = append(args, "-o", filename)
	}

	cmd := exec.CommandContext(ctx, "aria2c", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := stdout.String()
		if detail == "" {
			detail = stderr.String()
		}
		return detail, fmt.Errorf("aria2c: %w", err)
	}
	return stdout.String(), nil
}
