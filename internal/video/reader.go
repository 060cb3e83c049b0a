package video

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
)

const megabyte = 1024 * 1024

// JPEG start/end of image markers, used to split the MJPEG pipe into
// frames.
var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// Reader streams decoded frames from a video file through an ffmpeg MJPEG
// pipe. Frames come back strictly in stream order.
type Reader struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	stderr  bytes.Buffer
	scanner *bufio.Scanner
}

func NewReader(path string) (*Reader, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	cmd := exec.Command(ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"-")

	r := &Reader{cmd: cmd}
	cmd.Stderr = &r.stderr

	r.stdout, err = cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	r.scanner = bufio.NewScanner(r.stdout)
	r.scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	r.scanner.Split(SplitJpeg)

	return r, nil
}

// Next returns the next decoded frame, or io.EOF after the last one.
func (r *Reader) Next() (image.Image, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, fmt.Errorf("frame scanner failed: %w", err)
		}
		return nil, io.EOF
	}

	img, err := jpeg.Decode(bytes.NewReader(r.scanner.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

// Close waits for ffmpeg to exit and reports decode errors it logged.
func (r *Reader) Close() error {
	io.Copy(io.Discard, r.stdout)
	if err := r.cmd.Wait(); err != nil {
		if r.stderr.Len() > 0 {
			return fmt.Errorf("ffmpeg failed: %w: %s", err, r.stderr.String())
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// SplitJpeg is a bufio.Scanner split function that extracts whole JPEG
// images from an MJPEG byte stream by locating SOI/EOI marker pairs.
func SplitJpeg(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, jpegSOI)
	if start == -1 {
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], jpegEOI)
	if end == -1 {
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}
