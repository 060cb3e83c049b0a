// Package report renders the per-video scan report as a standalone HTML
// document.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"facetrace/internal/models"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"clock": formatTimestamp,
	"first": func(d []models.Appearance) models.Appearance { return d[0] },
	"last":  func(d []models.Appearance) models.Appearance { return d[len(d)-1] },
}).Parse(reportHTML))

// Generate renders the report for a processed video. The summary is read
// from the job row, not recomputed.
func Generate(video *models.Video) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, video); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

// formatTimestamp renders a video offset in seconds as mm:ss.s.
func formatTimestamp(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	minutes := int(d.Minutes())
	return fmt.Sprintf("%02d:%04.1f", minutes, d.Seconds()-float64(minutes)*60)
}

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Scan Report - {{.Filename}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; margin-top: 1em; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
th { background: #f0f0f0; }
.stats { margin-top: 1em; }
.stats span { margin-right: 2em; }
.muted { color: #888; }
</style>
</head>
<body>
<h1>Scan Report: {{.Filename}}</h1>
<div class="stats">
<span>Frames processed: {{.ProcessedFrames}}/{{.TotalFrames}}</span>
<span>Processing time: {{printf "%.1f" .ProcessingTimeSeconds}}s</span>
<span>Detections: {{.Summary.TotalDetections}}</span>
<span>Unique people: {{.Summary.UniquePeople}}</span>
</div>
{{if .Summary.PerPerson}}
<table>
<tr><th>Person</th><th>Appearances</th><th>First seen</th><th>Last seen</th></tr>
{{range .Summary.PerPerson}}
<tr>
<td>{{.Name}}</td>
<td>{{.Appearances}}</td>
<td>{{clock (first .Details).Timestamp}}</td>
<td>{{clock (last .Details).Timestamp}}</td>
</tr>
{{end}}
</table>
{{else}}
<p class="muted">No people detected.</p>
{{end}}
</body>
</html>
`
