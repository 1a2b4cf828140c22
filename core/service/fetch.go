package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tonycerq/tonycerq-comfyui/core/models"
	"github.com/tonycerq/tonycerq-comfyui/utils/fetcher"
)

// Fetcher is the external transfer capability a download job delegates to.
// The returned string is diagnostic output, meaningful on failure.
type Fetcher interface {
	Fetch(ctx context.Context, url, destDir, filename string) (string, error)
}

// Downloader runs operator-triggered single-model downloads. Each source
// variant shares the same contract: resolve the destination, broadcast a
// "downloading" event, delegate the transfer, broadcast the outcome.
type Downloader struct {
	registry *Registry
	comfyDir string
	aria     Fetcher
	gdown    *fetcher.Gdown
}

// NewDownloader creates a downloader rooted at the ComfyUI directory.
// Operator-triggered transfers use 16 parallel connections per file.
func NewDownloader(registry *Registry, comfyDir string) *Downloader {
	return &Downloader{
		registry: registry,
		comfyDir: comfyDir,
		aria:     fetcher.NewAria2(16),
		gdown:    fetcher.NewGdown(),
	}
}

// FromHuggingFace downloads a direct-URL model from a Hugging Face mirror.
func (d *Downloader) FromHuggingFace(ctx context.Context, rawURL, modelType string) error {
	dir, err := d.ensureModelDir(modelType)
	if err != nil {
		return d.fail("huggingface", err.Error())
	}

	d.announce("huggingface")

	detail, err := d.aria.Fetch(ctx, rawURL, dir, FilenameFromURL(rawURL))
	if err != nil {
		return d.fail("huggingface", detail)
	}

	d.succeed("huggingface")
	return nil
}

// FromCivitai downloads a model from Civitai, injecting the API token into
// the URL when supplied.
func (d *Downloader) FromCivitai(ctx context.Context, rawURL, apiKey, modelType string) error {
	dir, err := d.ensureModelDir(modelType)
	if err != nil {
		return d.fail("civitai", err.Error())
	}

	d.announce("civitai")

	downloadURL := rawURL
	if apiKey != "" {
		downloadURL = fmt.Sprintf("%s?token=%s", rawURL, apiKey)
	}

	detail, err := d.aria.Fetch(ctx, downloadURL, dir, "")
	if err != nil {
		return d.fail("civitai", detail)
	}

	d.succeed("civitai")
	return nil
}

// FromGoogleDrive downloads a shared Drive file, resolving the file id out of
// the varied URL shapes Drive produces. customFilename overrides the stored
// name when non-empty. gdown is installed on first use.
func (d *Downloader) FromGoogleDrive(ctx context.Context, rawURL, modelType, customFilename string) error {
	dir, err := d.ensureModelDir(modelType)
	if err != nil {
		return d.fail("gdrive", err.Error())
	}

	d.announce("gdrive")

	detail, err := d.gdown.Fetch(ctx, DriveFileID(rawURL), dir, strings.TrimSpace(customFilename))
	if err != nil {
		return d.fail("gdrive", detail)
	}

	d.succeed("gdrive")
	return nil
}

// ensureModelDir resolves the destination directory for a model type and
// creates it. The type may carry or omit the "models/" prefix.
func (d *Downloader) ensureModelDir(modelType string) (string, error) {
	if modelType == "" {
		modelType = "loras"
	}
	if !strings.HasPrefix(modelType, "models/") {
		modelType = filepath.Join("models", modelType)
	}

	dir := filepath.Join(d.comfyDir, modelType)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}
	return dir, nil
}

func (d *Downloader) announce(source string) {
	d.registry.Broadcast(models.NewDownloadEvent(models.DownloadEvent{
		Status: models.StatusDownloading,
		Source: source,
	}))
}

func (d *Downloader) succeed(source string) {
	log.Printf("Download completed (%s)", source)
	d.registry.Broadcast(models.NewDownloadEvent(models.DownloadEvent{
		Status: models.StatusSuccess,
		Source: source,
	}))
}

func (d *Downloader) fail(source, detail string) error {
	log.Printf("Download failed (%s): %s", source, detail)
	d.registry.Broadcast(models.NewDownloadEvent(models.DownloadEvent{
		Status: models.StatusFailed,
		Source: source,
		Detail: detail,
	}))
	return fmt.Errorf("download failed: %s", detail)
}

// FilenameFromURL derives an output filename from a URL's final path
// segment, ignoring any query string.
func FilenameFromURL(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	parts := strings.Split(rawURL, "/")
	return parts[len(parts)-1]
}

// DriveFileID resolves a Google Drive file id out of the URL shapes Drive
// produces: a path-embedded "/file/d/<id>/" segment, an "id=" query
// parameter, or a bare id.
func DriveFileID(rawURL string) string {
	if !strings.Contains(rawURL, "drive.google.com") {
		return rawURL
	}

	if i := strings.Index(rawURL, "/file/d/"); i >= 0 {
		id := rawURL[i+len("/file/d/"):]
		if j := strings.IndexByte(id, '/'); j >= 0 {
			id = id[:j]
		}
		return id
	}

	if i := strings.Index(rawURL, "id="); i >= 0 {
		id := rawURL[i+len("id="):]
		if j := strings.IndexByte(id, '&'); j >= 0 {
			id = id[:j]
		}
		return id
	}

	return rawURL
}
