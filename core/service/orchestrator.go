package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tonycerq/tonycerq-comfyui/core/models"
)

// Orchestrator fans a models configuration out into per-URL fetch jobs under
// one global concurrency bound shared across all categories. Files already
// present are skipped unless forced, so re-running over an unchanged
// filesystem spawns no new fetches.
type Orchestrator struct {
	registry *Registry
	fetch    Fetcher
	comfyDir string
	limit    int
}

// NewOrchestrator creates an orchestrator rooted at the ComfyUI directory.
// limit bounds simultaneously running fetch jobs across the whole session.
func NewOrchestrator(registry *Registry, fetch Fetcher, comfyDir string, limit int) *Orchestrator {
	if limit < 1 {
		limit = 5
	}
	return &Orchestrator{
		registry: registry,
		fetch:    fetch,
		comfyDir: comfyDir,
		limit:    limit,
	}
}

// RunFromSource loads the models configuration from a local path or URL and
// runs a full download session. A missing local config is replaced with a
// default empty one; an unreachable or malformed remote config aborts the
// session before any job is spawned.
func (o *Orchestrator) RunFromSource(ctx context.Context, source string, force bool) (*models.SessionSummary, error) {
	if !IsURL(source) {
		if _, err := os.Stat(source); os.IsNotExist(err) {
			log.Printf("Local config file not found at %s, writing default empty configuration", source)
			if err := WriteDefaultModelsConfig(source); err != nil {
				return nil, fmt.Errorf("failed to write default config: %w", err)
			}
		}
	}

	cfg, err := LoadModelsConfig(ctx, source)
	if err != nil {
		return nil, err
	}

	log.Printf("Found %d models in configuration", cfg.TotalModels())
	return o.Run(ctx, cfg, force), nil
}

// Run executes one download session over an already-parsed configuration.
// It ensures destination directories exist, skips files already present
// (unless force), schedules the rest under the concurrency bound and waits
// for every job to reach a terminal state. One job's failure never cancels
// its siblings.
func (o *Orchestrator) Run(ctx context.Context, cfg ModelsConfig, force bool) *models.SessionSummary {
	summary := &models.SessionSummary{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}

	if err := o.ensureDirectories(); err != nil {
		log.Printf("Failed to bootstrap directories: %v", err)
	}

	pending := o.expandJobs(cfg, force, summary)

	if len(pending) == 0 {
		log.Println("No models to download.")
		summary.FinishedAt = time.Now()
		return summary
	}

	// Ordinals count pending jobs within each category, matching the
	// per-category progress shown on the dashboard.
	perCategory := make(map[string]int)
	for _, job := range pending {
		perCategory[job.Category]++
	}

	log.Printf("Starting %d downloads (max concurrent: %d)", len(pending), o.limit)

	var g errgroup.Group
	g.SetLimit(o.limit)

	for _, job := range pending {
		job := job
		g.Go(func() error {
			o.runJob(ctx, job, perCategory[job.Category])
			return nil
		})
	}
	g.Wait()

	for _, job := range summary.Jobs {
		switch job.State {
		case models.JobSkipped:
			summary.Skipped++
		case models.JobSucceeded:
			summary.Succeeded++
		case models.JobFailed:
			summary.Failed++
		}
	}
	summary.FinishedAt = time.Now()

	log.Printf("Download session %s finished: %d succeeded, %d failed, %d skipped",
		summary.ID, summary.Succeeded, summary.Failed, summary.Skipped)
	return summary
}

// expandJobs turns the configuration into jobs, marking already-present files
// skipped and assigning category ordinals to the rest. Returned jobs are the
// pending ones to schedule; every job is also recorded on the summary.
func (o *Orchestrator) expandJobs(cfg ModelsConfig, force bool, summary *models.SessionSummary) []*models.DownloadJob {
	var pending []*models.DownloadJob

	for _, category := range cfg.Categories() {
		urls := cfg[category]
		if len(urls) == 0 {
			continue
		}

		dir := filepath.Join(o.comfyDir, "models", category)
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("Failed to create directory for category %s: %v", category, err)
			continue
		}

		ordinal := 0
		for _, rawURL := range urls {
			job := &models.DownloadJob{
				ID:       uuid.NewString(),
				Category: category,
				URL:      rawURL,
				Filename: FilenameFromURL(rawURL),
				State:    models.JobPending,
			}
			summary.Jobs = append(summary.Jobs, job)
			summary.Total++

			if _, err := os.Stat(filepath.Join(dir, job.Filename)); err == nil && !force {
				job.State = models.JobSkipped
				log.Printf("Skipping %s, file already exists", job.Filename)
				continue
			}

			ordinal++
			job.Ordinal = ordinal
			pending = append(pending, job)
			log.Printf("Queuing download: %s to %s", job.Filename, dir)
		}
	}

	return pending
}

// runJob drives a single fetch to a terminal state and broadcasts its
// progress. Errors stay isolated to the job.
func (o *Orchestrator) runJob(ctx context.Context, job *models.DownloadJob, categoryTotal int) {
	job.State = models.JobRunning
	dir := filepath.Join(o.comfyDir, "models", job.Category)

	o.registry.Broadcast(models.NewDownloadEvent(models.DownloadEvent{
		Status:   models.StatusDownloading,
		Source:   "models",
		Category: job.Category,
		File:     job.Filename,
		Current:  job.Ordinal,
		Total:    categoryTotal,
	}))

	log.Printf("Starting download of %s from %s", job.Filename, job.URL)

	detail, err := o.fetch.Fetch(ctx, job.URL, dir, job.Filename)
	if err != nil {
		job.State = models.JobFailed
		job.Detail = detail
		log.Printf("[%d/%d] Failed to download %s (%s): %s",
			job.Ordinal, categoryTotal, job.Filename, job.Category, detail)

		o.registry.Broadcast(models.NewDownloadEvent(models.DownloadEvent{
			Status:   models.StatusFailed,
			Source:   "models",
			Detail:   detail,
			Category: job.Category,
			File:     job.Filename,
			Current:  job.Ordinal,
			Total:    categoryTotal,
		}))
		return
	}

	job.State = models.JobSucceeded
	log.Printf("[%d/%d] Successfully downloaded %s (%s)",
		job.Ordinal, categoryTotal, job.Filename, job.Category)

	o.registry.Broadcast(models.NewDownloadEvent(models.DownloadEvent{
		Status:   models.StatusSuccess,
		Source:   "models",
		Category: job.Category,
		File:     job.Filename,
		Current:  job.Ordinal,
		Total:    categoryTotal,
	}))
}

// ensureDirectories bootstraps the model category subdirectories plus the
// input and output directories.
func (o *Orchestrator) ensureDirectories() error {
	dirs := []string{
		filepath.Join(o.comfyDir, "input"),
		filepath.Join(o.comfyDir, "output"),
	}
	for _, category := range DefaultCategories {
		dirs = append(dirs, filepath.Join(o.comfyDir, "models", category))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
