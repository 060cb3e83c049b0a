package video

import (
	"bufio"
	"bytes"
	"image"
	"image/jpeg"
	"testing"
)

func encodeTestJpeg(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestSplitJpeg(t *testing.T) {
	frame := encodeTestJpeg(t)

	var stream bytes.Buffer
	for i := 0; i < 3; i++ {
		stream.Write(frame)
	}

	scanner := bufio.NewScanner(&stream)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(SplitJpeg)

	count := 0
	for scanner.Scan() {
		token := scanner.Bytes()
		if !bytes.HasPrefix(token, jpegSOI) {
			t.Error("Frame does not start with SOI marker")
		}
		if !bytes.HasSuffix(token, jpegEOI) {
			t.Error("Frame does not end with EOI marker")
		}
		if _, err := jpeg.Decode(bytes.NewReader(token)); err != nil {
			t.Errorf("Split frame does not decode: %v", err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("Scanner error: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 frames, got %d", count)
	}
}

func TestSplitJpeg_LeadingGarbage(t *testing.T) {
	frame := encodeTestJpeg(t)

	var stream bytes.Buffer
	stream.Write([]byte{0x00, 0x01, 0x02})
	stream.Write(frame)

	scanner := bufio.NewScanner(&stream)
	scanner.Split(SplitJpeg)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)

	if !scanner.Scan() {
		t.Fatal("Expected a frame despite leading garbage")
	}
	if !bytes.HasPrefix(scanner.Bytes(), jpegSOI) {
		t.Error("Garbage not stripped from frame start")
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"24/1", 24},
		{"30000/1001", 29.97002997002997},
		{"25", 25},
		{"0/0", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		if got := parseFrameRate(tt.in); got != tt.want {
			t.Errorf("parseFrameRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
