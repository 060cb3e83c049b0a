package report

import (
	"strings"
	"testing"

	"facetrace/internal/models"
)

func TestGenerate(t *testing.T) {
	video := models.NewVideo("meeting.mp4", "uploads/abc.mp4", "video/mp4", 1024)
	video.ProcessedFrames = 300
	video.TotalFrames = 300
	video.ProcessingTimeSeconds = 12.5
	video.Summary = models.Summary{
		TotalDetections: 3,
		UniquePeople:    1,
		PerPerson: []models.PersonSummary{
			{
				PersonID:    "p1",
				Name:        "Person 1",
				Appearances: 3,
				Details: []models.Appearance{
					{Timestamp: 0.0, FrameIndex: 0},
					{Timestamp: 4.5, FrameIndex: 135},
					{Timestamp: 65.2, FrameIndex: 1956},
				},
			},
		},
	}

	out, err := Generate(video)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	html := string(out)

	for _, want := range []string{"meeting.mp4", "Person 1", "300/300", "Unique people: 1", "00:00.0", "01:05.2"} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestGenerateEmptySummary(t *testing.T) {
	video := models.NewVideo("empty.mp4", "uploads/e.mp4", "video/mp4", 10)

	out, err := Generate(video)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(string(out), "No people detected") {
		t.Errorf("report for empty summary missing placeholder text")
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00.0"},
		{9.96, "00:10.0"},
		{59.94, "00:59.9"},
		{61.5, "01:01.5"},
		{600.0, "10:00.0"},
	}
	for _, tc := range cases {
		if got := formatTimestamp(tc.seconds); got != tc.want {
			t.Errorf("formatTimestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
