// Package models defines domain models for the dashboard.
package models

// Event is the envelope delivered to websocket subscribers.
// Exactly one of Data, Line or Msg is set depending on Type.
type Event struct {
	Type string         `json:"type"` // "download", "new_log_line", "msg"
	Data *DownloadEvent `json:"data,omitempty"`
	Line string         `json:"line,omitempty"`
	Msg  string         `json:"msg,omitempty"`
}

// DownloadStatus describes the lifecycle of a single fetch attempt.
type DownloadStatus string

const (
	StatusDownloading DownloadStatus = "downloading"
	StatusSuccess     DownloadStatus = "success"
	StatusFailed      DownloadStatus = "failed"
)

// DownloadEvent is the payload of a "download" event.
type DownloadEvent struct {
	Status   DownloadStatus `json:"status"`
	Source   string         `json:"source"` // variant name: civitai, huggingface, googledrive, models
	Detail   string         `json:"detail,omitempty"`
	Category string         `json:"category,omitempty"`
	File     string         `json:"file,omitempty"`
	Current  int            `json:"current,omitempty"` // ordinal within the category
	Total    int            `json:"total,omitempty"`   // jobs in the category
}

// NewLogLineEvent builds a "new_log_line" event carrying a rendered log line.
func NewLogLineEvent(rendered string) Event {
	return Event{Type: "new_log_line", Line: rendered}
}

// NewMsgEvent builds a plain message event such as the connection acknowledgment.
func NewMsgEvent(msg string) Event {
	return Event{Type: "msg", Msg: msg}
}

// NewDownloadEvent builds a "download" event.
func NewDownloadEvent(data DownloadEvent) Event {
	return Event{Type: "download", Data: &data}
}
