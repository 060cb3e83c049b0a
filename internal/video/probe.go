package video

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Info describes a video stream as reported by ffprobe.
type Info struct {
	FPS         float64
	TotalFrames int
	Width       int
	Height      int
	Duration    float64
}

type ffprobeOutput struct {
	Streams []struct {
		Width         int    `json:"width"`
		Height        int    `json:"height"`
		RFrameRate    string `json:"r_frame_rate"`
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe inspects the video's first stream. Frame count falls back to
// counting packets when container metadata omits it, and to a
// duration-based estimate as a last resort.
func Probe(path string) (Info, error) {
	if _, err := os.Stat(path); err != nil {
		return Info{}, fmt.Errorf("video file not accessible: %w", err)
	}
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	cmd := exec.Command(ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames",
		"-show_entries", "format=duration",
		"-of", "json",
		path)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return Info{}, fmt.Errorf("ffprobe failed: %w", err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		return Info{}, fmt.Errorf("ffprobe JSON parse error: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return Info{}, fmt.Errorf("no video stream found in %s", path)
	}

	stream := parsed.Streams[0]
	info := Info{
		Width:  stream.Width,
		Height: stream.Height,
		FPS:    parseFrameRate(stream.RFrameRate),
	}
	if info.Width <= 0 || info.Height <= 0 {
		return Info{}, fmt.Errorf("invalid video dimensions %dx%d", info.Width, info.Height)
	}
	if info.FPS <= 0 {
		info.FPS = 24.0
	}

	if d, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		info.Duration = d
	}

	if count, err := strconv.Atoi(stream.NbFrames); err == nil && count > 0 {
		info.TotalFrames = count
	} else if count := countPackets(ffprobePath, path); count > 0 {
		info.TotalFrames = count
	} else if info.Duration > 0 {
		info.TotalFrames = int(info.Duration * info.FPS)
	}

	return info, nil
}

// countPackets is the slow fallback when container metadata lacks a frame
// count; it decodes packet headers for the whole stream.
func countPackets(ffprobePath, path string) int {
	cmd := exec.Command(ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=nb_read_packets",
		"-of", "json",
		path)

	out, err := cmd.Output()
	if err != nil {
		return 0
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil || len(parsed.Streams) == 0 {
		return 0
	}
	count, err := strconv.Atoi(parsed.Streams[0].NbReadPackets)
	if err != nil {
		return 0
	}
	return count
}

// parseFrameRate converts ffprobe's rational frame rate ("24000/1001") to
// a float.
func parseFrameRate(rate string) float64 {
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) == 2 {
		num, err1 := strconv.ParseFloat(parts[0], 64)
		den, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 == nil && err2 == nil && den != 0 {
			return num / den
		}
		return 0
	}
	f, err := strconv.ParseFloat(rate, 64)
	if err != nil {
		return 0
	}
	return f
}
