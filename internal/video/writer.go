package video

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// Writer encodes annotated frames to an mp4 file through ffmpeg. Frames
// must be written in output order; the pipe preserves it.
type Writer struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
}

func NewWriter(path string, fps float64) (*Writer, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if fps <= 0 {
		fps = 24.0
	}

	cmd := exec.Command(ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-framerate", fmt.Sprintf("%.6f", fps),
		"-i", "-",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-movflags", "+faststart",
		path)

	w := &Writer{cmd: cmd}
	cmd.Stderr = &w.stderr

	w.stdin, err = cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg encoder: %w", err)
	}
	return w, nil
}

// WriteFrame appends one frame to the output video. Any failure here is
// fatal to the job: the annotated video is a required deliverable.
func (w *Writer) WriteFrame(img image.Image) error {
	if err := jpeg.Encode(w.stdin, img, &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("failed to encode output frame: %w", err)
	}
	return nil
}

// Close flushes the stream and waits for the encoder to finish.
func (w *Writer) Close() error {
	if err := w.stdin.Close(); err != nil {
		return fmt.Errorf("failed to close encoder pipe: %w", err)
	}
	if err := w.cmd.Wait(); err != nil {
		if w.stderr.Len() > 0 {
			return fmt.Errorf("ffmpeg encoder failed: %w: %s", err, w.stderr.String())
		}
		return fmt.Errorf("ffmpeg encoder failed: %w", err)
	}
	return nil
}
