package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
)

// Gdown invokes the gdown tool for Google Drive shares, installing it on
// first use. The provisioning check runs at most once per process and never
// blocks transfers of other tools.
type Gdown struct {
	mu        sync.Mutex
	installed bool
}

// NewGdown creates a gdown runner.
func NewGdown() *Gdown {
	return &Gdown{}
}

// EnsureInstalled verifies gdown is available, installing it via pip when
// absent. It is idempotent: concurrent callers serialize on the check and at
// most one install happens.
func (g *Gdown) EnsureInstalled(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.installed {
		return nil
	}

	if err := exec.CommandContext(ctx, "pip", "show", "gdown").Run(); err != nil {
		var stderr bytes.Buffer
		install := exec.CommandContext(ctx, "pip", "install", "gdown")
		install.Stderr = &stderr
		if err := install.Run(); err != nil {
			return fmt.Errorf("installing gdown: %w: %s", err, stderr.String())
		}
	}

	g.installed = true
	return nil
}

// Fetch downloads the Drive file with the given id into destDir. When
// filename is non-empty the file is written under that name. The returned
// detail is gdown's stderr; it is meaningful on failure.
func (g *Gdown) Fetch(ctx context.Context, fileID, destDir, filename string) (string, error) {
	if err := g.EnsureInstalled(ctx); err != nil {
		return "", err
	}

	// A trailing separator makes gdown keep the file's stored name.
	output := destDir + string(filepath.Separator)
	if filename != "" {
		output = filepath.Join(destDir, filename)
	}

	cmd := exec.CommandContext(ctx, "gdown", "--id", fileID, "-O", output)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stderr.String(), fmt.Errorf("gdown: %w", err)
	}
	return stderr.String(), nil
}
