package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// ModelsConfig maps a category name to its ordered list of source URLs.
type ModelsConfig map[string][]string

// DefaultCategories are the model buckets bootstrapped under <comfy>/models.
var DefaultCategories = []string{
	"checkpoints",
	"vae",
	"unet",
	"diffusion_models",
	"text_encoders",
	"loras",
	"upscale_models",
	"clip",
	"controlnet",
	"clip_vision",
	"ipadapter",
	"style_models",
}

var configClient = &http.Client{Timeout: 30 * time.Second}

// IsURL reports whether the models configuration source is remote.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// LoadModelsConfig reads the models configuration from a local path or an
// HTTP(S) URL. Remote bodies are parsed as JSON regardless of content type
// (GitHub raw files are served as text/plain). A category whose value is not
// a list of URLs is skipped with a warning rather than failing the load.
func LoadModelsConfig(ctx context.Context, source string) (ModelsConfig, error) {
	var body []byte
	var err error

	if IsURL(source) {
		body, err = fetchConfigBody(ctx, source)
	} else {
		body, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", source, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config from %s: %w", source, err)
	}

	cfg := make(ModelsConfig, len(raw))
	for category, value := range raw {
		var urls []string
		if err := json.Unmarshal(value, &urls); err != nil {
			log.Printf("Skipping '%s' as it's not a list of URLs", category)
			continue
		}
		cfg[category] = urls
	}

	return cfg, nil
}

// Categories returns the config's category names in sorted order.
func (c ModelsConfig) Categories() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TotalModels counts every URL across all categories.
func (c ModelsConfig) TotalModels() int {
	total := 0
	for _, urls := range c {
		total += len(urls)
	}
	return total
}

// WriteDefaultModelsConfig writes an empty configuration covering the default
// categories, used when no local config exists at startup.
func WriteDefaultModelsConfig(path string) error {
	cfg := make(ModelsConfig, len(DefaultCategories))
	for _, category := range DefaultCategories {
		cfg[category] = []string{}
	}

	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func fetchConfigBody(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := configClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return io.ReadAll(resp.Body)
}
