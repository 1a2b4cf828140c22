package logfmt

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected Severity
	}{
		{
			name:     "plain info line",
			content:  "loading checkpoint sd_xl_base.safetensors",
			expected: SeverityInfo,
		},
		{
			name:     "error keyword",
			content:  "CUDA Error: out of memory",
			expected: SeverityError,
		},
		{
			name:     "exception keyword",
			content:  "Unhandled exception in node executor",
			expected: SeverityError,
		},
		{
			name:     "failure keyword",
			content:  "download failed after 5 tries",
			expected: SeverityError,
		},
		{
			name:     "warning keyword",
			content:  "Warning: clip missing",
			expected: SeverityWarning,
		},
		{
			name:     "caution keyword",
			content:  "proceed with caution",
			expected: SeverityWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.content); got != tt.expected {
				t.Errorf("Classify(%q) = %q, want %q", tt.content, got, tt.expected)
			}
		})
	}
}

func TestSplitTimestampWithPrefix(t *testing.T) {
	ts, content := SplitTimestamp("[2024-01-02 03:04:05] model loaded")

	if ts != "2024-01-02 03:04:05" {
		t.Errorf("timestamp = %q, want %q", ts, "2024-01-02 03:04:05")
	}
	if content != "model loaded" {
		t.Errorf("content = %q, want %q", content, "model loaded")
	}
}

func TestSplitTimestampSynthesized(t *testing.T) {
	ts, content := SplitTimestamp("no prefix here")

	if ts == "" {
		t.Error("expected a synthesized timestamp")
	}
	if content != "no prefix here" {
		t.Errorf("content = %q, want the whole line", content)
	}
}

func TestRenderInlineEscapesHTML(t *testing.T) {
	out := RenderInline("<script>alert(1)</script>")

	if strings.Contains(out, "<script>") {
		t.Errorf("RenderInline did not escape content: %q", out)
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Errorf("RenderInline missing escaped content: %q", out)
	}
	if !strings.Contains(out, "log-timestamp") {
		t.Errorf("RenderInline missing timestamp span: %q", out)
	}
}

func TestRenderWrapsInLogLineDiv(t *testing.T) {
	out := Render("hello")

	if !strings.HasPrefix(out, "<div class='log-line'>") || !strings.HasSuffix(out, "</div>") {
		t.Errorf("Render = %q, want log-line div wrapper", out)
	}
}
