package service

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDriveFileID(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "path-embedded id",
			url:      "https://drive.google.com/file/d/1AbC_dEf/view?usp=sharing",
			expected: "1AbC_dEf",
		},
		{
			name:     "id query parameter",
			url:      "https://drive.google.com/open?id=XyZ123&authuser=0",
			expected: "XyZ123",
		},
		{
			name:     "uc download link",
			url:      "https://drive.google.com/uc?export=download&id=QqWw",
			expected: "QqWw",
		},
		{
			name:     "bare file id",
			url:      "1AbC_dEf",
			expected: "1AbC_dEf",
		},
		{
			name:     "non-drive URL passes through",
			url:      "https://example.com/file/d/not-drive",
			expected: "https://example.com/file/d/not-drive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DriveFileID(tt.url); got != tt.expected {
				t.Errorf("DriveFileID(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}

func TestFilenameFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "plain path",
			url:      "http://h/a.safetensors",
			expected: "a.safetensors",
		},
		{
			name:     "nested path",
			url:      "https://huggingface.co/org/repo/resolve/main/model.safetensors",
			expected: "model.safetensors",
		},
		{
			name:     "query string ignored",
			url:      "https://civitai.com/api/download/models/12345?type=Model",
			expected: "12345",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilenameFromURL(tt.url); got != tt.expected {
				t.Errorf("FilenameFromURL(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}

func TestDownloaderEnsureModelDir(t *testing.T) {
	comfy := t.TempDir()
	d := NewDownloader(NewRegistry(), comfy)

	tests := []struct {
		name      string
		modelType string
		expected  string
	}{
		{
			name:      "bare category",
			modelType: "checkpoints",
			expected:  filepath.Join(comfy, "models", "checkpoints"),
		},
		{
			name:      "with models prefix",
			modelType: "models/vae",
			expected:  filepath.Join(comfy, "models", "vae"),
		},
		{
			name:      "empty defaults to loras",
			modelType: "",
			expected:  filepath.Join(comfy, "models", "loras"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, err := d.ensureModelDir(tt.modelType)
			if err != nil {
				t.Fatal(err)
			}
			if dir != tt.expected {
				t.Errorf("ensureModelDir(%q) = %q, want %q", tt.modelType, dir, tt.expected)
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				t.Errorf("destination %q was not created: %v", dir, err)
			}
		})
	}
}
