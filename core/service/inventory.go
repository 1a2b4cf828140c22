package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/tonycerq/tonycerq-comfyui/core/models"
)

var customNodeRe = regexp.MustCompile(`git clone --depth=1 (https://github\.com/\S+?)\.git`)

// InventoryService reports what the node has installed: models declared in
// the configuration and custom node repositories cloned by start.sh.
type InventoryService struct {
	comfyDir     string
	configSource string
	startScript  string
}

// NewInventoryService creates an inventory service.
func NewInventoryService(comfyDir, configSource, startScript string) *InventoryService {
	return &InventoryService{
		comfyDir:     comfyDir,
		configSource: configSource,
		startScript:  startScript,
	}
}

// InstalledModels lists the configured models per category, sorted by name,
// with an on-disk existence flag per file. A config the node cannot load
// yields an empty inventory rather than an error: the dashboard should render
// even when the config source is unreachable.
func (s *InventoryService) InstalledModels(ctx context.Context) map[string][]models.ModelFile {
	cfg, err := LoadModelsConfig(ctx, s.configSource)
	if err != nil {
		log.Printf("Failed to load models config for inventory: %v", err)
		return map[string][]models.ModelFile{}
	}

	inventory := make(map[string][]models.ModelFile)
	for _, category := range cfg.Categories() {
		urls := cfg[category]
		if len(urls) == 0 {
			continue
		}

		files := make([]models.ModelFile, 0, len(urls))
		for _, rawURL := range urls {
			name := FilenameFromURL(rawURL)
			path := filepath.Join(s.comfyDir, "models", category, name)

			_, statErr := os.Stat(path)
			files = append(files, models.ModelFile{
				Name:      name,
				Path:      path,
				URL:       rawURL,
				Installed: statErr == nil,
			})
		}

		sort.Slice(files, func(i, j int) bool {
			return strings.ToLower(files[i].Name) < strings.ToLower(files[j].Name)
		})
		inventory[category] = files
	}

	return inventory
}

// CustomNodes lists the custom node repositories start.sh clones, sorted by
// name. A missing script yields an empty list with a warning.
func (s *InventoryService) CustomNodes() []models.CustomNode {
	content, err := os.ReadFile(s.startScript)
	if err != nil {
		log.Printf("Warning: start script not found at %s", s.startScript)
		return []models.CustomNode{}
	}
	return s.parseCustomNodes(string(content))
}

// parseCustomNodes extracts custom node clones from start script content.
func (s *InventoryService) parseCustomNodes(script string) []models.CustomNode {
	matches := customNodeRe.FindAllStringSubmatch(script, -1)

	nodes := make([]models.CustomNode, 0, len(matches))
	for _, m := range matches {
		repoURL := m[1]
		name := repoURL[strings.LastIndex(repoURL, "/")+1:]

		nodes = append(nodes, models.CustomNode{
			Name:    name,
			Path:    filepath.Join(s.comfyDir, "custom_nodes", name),
			Version: "Installed",
			URL:     fmt.Sprintf("%s.git", repoURL),
		})
	}

	sort.Slice(nodes, func(i, j int) bool {
		return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
	})
	return nodes
}
