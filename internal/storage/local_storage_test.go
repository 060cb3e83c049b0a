package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type mockFile struct {
	*bytes.Reader
}

func (m *mockFile) Close() error {
	return nil
}

func TestLocalStorage(t *testing.T) {
	tmpDir := t.TempDir()
	storage, err := NewLocalStorage(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	t.Run("SaveUpload", func(t *testing.T) {
		content := []byte("test video content")
		reader := &mockFile{bytes.NewReader(content)}

		info := FileInfo{
			Filename:    "test.mp4",
			ContentType: "video/mp4",
			Size:        int64(len(content)),
		}

		filename, err := storage.SaveUpload(reader, info)
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		if filepath.Ext(filename) != ".mp4" {
			t.Errorf("Expected .mp4 extension, got %s", filepath.Ext(filename))
		}

		savedPath := filepath.Join(tmpDir, filename)
		if _, err := os.Stat(savedPath); os.IsNotExist(err) {
			t.Errorf("File was not saved to expected location: %s", savedPath)
		}
	})

	t.Run("SaveBytes", func(t *testing.T) {
		rel, err := storage.SaveBytes("snapshots/video-1/person-1/42.jpg", []byte{0xFF, 0xD8, 0xFF, 0xD9})
		if err != nil {
			t.Fatalf("Failed to save bytes: %v", err)
		}

		fullPath := filepath.Join(tmpDir, rel)
		data, err := os.ReadFile(fullPath)
		if err != nil {
			t.Fatalf("Failed to read saved file: %v", err)
		}
		if len(data) != 4 {
			t.Errorf("Expected 4 bytes, got %d", len(data))
		}
	})

	t.Run("OpenFile", func(t *testing.T) {
		content := []byte("test video content")
		testFile := "test-file.mp4"
		fullPath := filepath.Join(tmpDir, testFile)

		if err := os.WriteFile(fullPath, content, 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		file, err := storage.OpenFile(testFile)
		if err != nil {
			t.Fatalf("Failed to open file: %v", err)
		}
		defer file.Close()

		read, err := io.ReadAll(file)
		if err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if !bytes.Equal(read, content) {
			t.Error("File content mismatch")
		}
	})

	t.Run("PathTraversalRejected", func(t *testing.T) {
		if _, err := storage.OpenFile("../outside.mp4"); err == nil {
			t.Error("Expected error for path traversal, got nil")
		}
		if _, err := storage.SaveBytes("../escape.jpg", []byte("x")); err == nil {
			t.Error("Expected error for path traversal, got nil")
		}
	})

	t.Run("DeleteDir", func(t *testing.T) {
		if _, err := storage.SaveBytes("snapshots/video-2/person-1/0.jpg", []byte("x")); err != nil {
			t.Fatalf("Failed to save bytes: %v", err)
		}

		if err := storage.DeleteDir("snapshots/video-2"); err != nil {
			t.Fatalf("Failed to delete directory: %v", err)
		}
		if _, err := os.Stat(filepath.Join(tmpDir, "snapshots", "video-2")); !os.IsNotExist(err) {
			t.Error("Directory still exists after delete")
		}

		if err := storage.DeleteDir("../somewhere"); err == nil {
			t.Error("Expected error for path traversal, got nil")
		}
	})

	t.Run("DeleteFile", func(t *testing.T) {
		testFile := "delete-me.mp4"
		fullPath := filepath.Join(tmpDir, testFile)
		if err := os.WriteFile(fullPath, []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		if err := storage.DeleteFile(testFile); err != nil {
			t.Fatalf("Failed to delete file: %v", err)
		}
		if _, err := os.Stat(fullPath); !os.IsNotExist(err) {
			t.Error("File still exists after delete")
		}
	})
}
