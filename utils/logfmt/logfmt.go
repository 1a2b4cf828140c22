// Package logfmt renders raw log lines into the Docker-style HTML form shown
// by the dashboard.
package logfmt

import (
	"fmt"
	"html"
	"regexp"
	"time"
)

var (
	timestampRe = regexp.MustCompile(`^\[([\d\-\s:.]+)\]`)
	errorRe     = regexp.MustCompile(`(?i)error|exception|fail|critical`)
	warningRe   = regexp.MustCompile(`(?i)warn|caution`)
)

// Severity classifies a log line by keyword.
type Severity string

const (
	SeverityInfo    Severity = "log-info"
	SeverityWarning Severity = "log-warning"
	SeverityError   Severity = "log-error"
)

// Classify returns the severity CSS class for a line's content.
func Classify(content string) Severity {
	switch {
	case errorRe.MatchString(content):
		return SeverityError
	case warningRe.MatchString(content):
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// SplitTimestamp extracts a leading "[ts]" prefix from a line, or synthesizes
// the current time when the line carries none.
func SplitTimestamp(line string) (timestamp, content string) {
	if m := timestampRe.FindStringSubmatch(line); m != nil {
		rest := line[len(m[0]):]
		for len(rest) > 0 && rest[0] == ' ' {
			rest = rest[1:]
		}
		return m[1], rest
	}
	return time.Now().Format("2006-01-02 15:04:05.000"), line
}

// RenderInline formats a line as timestamp + severity spans, the form carried
// by websocket events.
func RenderInline(line string) string {
	ts, content := SplitTimestamp(line)
	return fmt.Sprintf("<span class='log-timestamp'>%s</span><span class='%s'>%s</span>",
		ts, Classify(content), html.EscapeString(content))
}

// Render formats a line as a full log-line div, the form used in snapshots.
func Render(line string) string {
	return fmt.Sprintf("<div class='log-line'>%s</div>", RenderInline(line))
}
