package models

// ModelFile describes one model artifact declared in the models configuration.
type ModelFile struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	URL       string `json:"url"`
	Installed bool   `json:"installed"`
}

// CustomNode describes a ComfyUI custom node repository installed by start.sh.
type CustomNode struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Version string `json:"version"`
	URL     string `json:"url"`
}
