package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tonycerq/tonycerq-comfyui/core/models"
)

// fakeFetcher stands in for the external transfer tool. It writes the
// destination file on success and tracks how many fetches run simultaneously.
type fakeFetcher struct {
	mu        sync.Mutex
	active    int
	maxActive int
	calls     int
	delay     time.Duration
	failFiles map[string]bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, destDir, filename string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if f.failFiles[filename] {
		return "simulated transfer failure", errors.New("exit status 1")
	}
	return "", os.WriteFile(filepath.Join(destDir, filename), []byte("weights"), 0644)
}

func (f *fakeFetcher) stats() (calls, maxActive int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.maxActive
}

func TestOrchestratorRespectsConcurrencyBound(t *testing.T) {
	dir := t.TempDir()
	fetch := &fakeFetcher{delay: 20 * time.Millisecond}
	o := NewOrchestrator(NewRegistry(), fetch, dir, 2)

	cfg := ModelsConfig{
		"checkpoints": {"http://h/c1.safetensors", "http://h/c2.safetensors", "http://h/c3.safetensors"},
		"loras":       {"http://h/l1.safetensors", "http://h/l2.safetensors", "http://h/l3.safetensors"},
	}

	summary := o.Run(context.Background(), cfg, false)

	if summary.Succeeded != 6 {
		t.Errorf("Succeeded = %d, want 6", summary.Succeeded)
	}

	_, maxActive := fetch.stats()
	if maxActive > 2 {
		t.Errorf("max simultaneous fetches = %d, exceeds bound 2", maxActive)
	}
}

func TestOrchestratorSequentialWhenBoundIsOne(t *testing.T) {
	dir := t.TempDir()
	fetch := &fakeFetcher{delay: 10 * time.Millisecond}
	o := NewOrchestrator(NewRegistry(), fetch, dir, 1)

	cfg := ModelsConfig{
		"loras": {"http://h/a.safetensors", "http://h/b.safetensors"},
	}

	summary := o.Run(context.Background(), cfg, false)

	if summary.Succeeded != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %d succeeded / %d failed, want 2 / 0", summary.Succeeded, summary.Failed)
	}

	_, maxActive := fetch.stats()
	if maxActive != 1 {
		t.Errorf("max simultaneous fetches = %d, want 1", maxActive)
	}

	for _, name := range []string{"a.safetensors", "b.safetensors"} {
		if _, err := os.Stat(filepath.Join(dir, "models", "loras", name)); err != nil {
			t.Errorf("missing downloaded file %s: %v", name, err)
		}
	}
}

func TestOrchestratorSecondRunSkipsEverything(t *testing.T) {
	dir := t.TempDir()
	fetch := &fakeFetcher{}
	o := NewOrchestrator(NewRegistry(), fetch, dir, 5)

	cfg := ModelsConfig{
		"vae":   {"http://h/v.safetensors"},
		"loras": {"http://h/a.safetensors", "http://h/b.safetensors"},
	}

	first := o.Run(context.Background(), cfg, false)
	if first.Succeeded != 3 {
		t.Fatalf("first run succeeded = %d, want 3", first.Succeeded)
	}

	second := o.Run(context.Background(), cfg, false)
	if second.Skipped != 3 || second.Succeeded != 0 || second.Failed != 0 {
		t.Errorf("second run = %+v, want all 3 skipped", second)
	}

	calls, _ := fetch.stats()
	if calls != 3 {
		t.Errorf("fetch calls after both runs = %d, want 3 (no new fetches)", calls)
	}
}

func TestOrchestratorForceRedownloads(t *testing.T) {
	dir := t.TempDir()
	fetch := &fakeFetcher{}
	o := NewOrchestrator(NewRegistry(), fetch, dir, 5)

	cfg := ModelsConfig{"loras": {"http://h/a.safetensors"}}

	o.Run(context.Background(), cfg, false)
	summary := o.Run(context.Background(), cfg, true)

	if summary.Skipped != 0 || summary.Succeeded != 1 {
		t.Errorf("forced run = %+v, want 1 succeeded, 0 skipped", summary)
	}

	calls, _ := fetch.stats()
	if calls != 2 {
		t.Errorf("fetch calls = %d, want 2", calls)
	}
}

func TestOrchestratorFailureDoesNotCancelSiblings(t *testing.T) {
	dir := t.TempDir()
	fetch := &fakeFetcher{failFiles: map[string]bool{"bad.safetensors": true}}
	o := NewOrchestrator(NewRegistry(), fetch, dir, 5)

	cfg := ModelsConfig{
		"loras": {"http://h/good.safetensors", "http://h/bad.safetensors", "http://h/also-good.safetensors"},
	}

	summary := o.Run(context.Background(), cfg, false)

	if summary.Failed != 1 || summary.Succeeded != 2 {
		t.Fatalf("summary = %d failed / %d succeeded, want 1 / 2", summary.Failed, summary.Succeeded)
	}

	for _, job := range summary.Jobs {
		if job.Filename == "bad.safetensors" {
			if job.State != models.JobFailed || job.Detail == "" {
				t.Errorf("failed job = %+v, want failed state with detail", job)
			}
		} else if job.State != models.JobSucceeded {
			t.Errorf("sibling job %s = %s, want succeeded", job.Filename, job.State)
		}
	}
}

func TestOrchestratorBroadcastsJobProgress(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry()
	sub := registry.Register()

	o := NewOrchestrator(registry, &fakeFetcher{}, dir, 5)
	o.Run(context.Background(), ModelsConfig{"loras": {"http://h/a.safetensors"}}, false)

	registry.Unregister(sub)

	var statuses []models.DownloadStatus
	for ev := range sub.Events() {
		if ev.Type != "download" || ev.Data == nil {
			t.Fatalf("unexpected event %+v", ev)
		}
		if ev.Data.Category != "loras" || ev.Data.File != "a.safetensors" {
			t.Errorf("event payload = %+v, want loras/a.safetensors", ev.Data)
		}
		statuses = append(statuses, ev.Data.Status)
	}

	if len(statuses) != 2 || statuses[0] != models.StatusDownloading || statuses[1] != models.StatusSuccess {
		t.Errorf("statuses = %v, want [downloading success]", statuses)
	}
}

func TestRunFromSourceWritesDefaultConfigWhenMissing(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "models_config.json")
	fetch := &fakeFetcher{}
	o := NewOrchestrator(NewRegistry(), fetch, dir, 5)

	summary, err := o.RunFromSource(context.Background(), configPath, false)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total != 0 {
		t.Errorf("Total = %d, want 0 for default empty config", summary.Total)
	}

	cfg, err := LoadModelsConfig(context.Background(), configPath)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if _, ok := cfg["checkpoints"]; !ok {
		t.Error("default config missing checkpoints category")
	}

	calls, _ := fetch.stats()
	if calls != 0 {
		t.Errorf("fetch calls = %d, want 0", calls)
	}
}

func TestRunFromSourceAbortsOnMalformedRemoteConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not json"))
	}))
	defer server.Close()

	fetch := &fakeFetcher{}
	o := NewOrchestrator(NewRegistry(), fetch, t.TempDir(), 5)

	summary, err := o.RunFromSource(context.Background(), server.URL, false)
	if err == nil {
		t.Fatal("expected an error for malformed remote config")
	}
	if summary != nil {
		t.Errorf("summary = %+v, want nil (no jobs spawned)", summary)
	}

	calls, _ := fetch.stats()
	if calls != 0 {
		t.Errorf("fetch calls = %d, want 0", calls)
	}
}

func TestRunFromSourceAbortsOnUnreachableRemoteConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	o := NewOrchestrator(NewRegistry(), &fakeFetcher{}, t.TempDir(), 5)

	if _, err := o.RunFromSource(context.Background(), server.URL, false); err == nil {
		t.Fatal("expected an error for unreachable remote config")
	}
}
