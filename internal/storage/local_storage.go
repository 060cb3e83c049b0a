package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// SaveUpload stores an uploaded video under a random filename and returns
// the name relative to the storage root.
func (ls *LocalStorage) SaveUpload(file multipart.File, info FileInfo) (string, error) {
	ext := filepath.Ext(info.Filename)
	if ext == "" {
		ext = ".mp4"
	}

	filename := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	fullPath := filepath.Join(ls.basePath, filename)

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filename, nil
}

// SaveBytes writes an artifact (snapshot, report) at the given relative
// path, creating parent directories as needed, and returns the path.
func (ls *LocalStorage) SaveBytes(relPath string, data []byte) (string, error) {
	fullPath, err := ls.AbsPath(relPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return relPath, nil
}

func (ls *LocalStorage) OpenFile(relPath string) (io.ReadSeekCloser, error) {
	fullPath, err := ls.AbsPath(relPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (ls *LocalStorage) DeleteFile(relPath string) error {
	fullPath, err := ls.AbsPath(relPath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// DeleteDir removes a directory tree under the storage root, such as a
// video's snapshot directory.
func (ls *LocalStorage) DeleteDir(relPath string) error {
	fullPath, err := ls.AbsPath(relPath)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(fullPath); err != nil {
		return fmt.Errorf("failed to delete directory: %w", err)
	}
	return nil
}

// AbsPath resolves a relative path under the storage root, rejecting
// traversal outside it.
func (ls *LocalStorage) AbsPath(relPath string) (string, error) {
	cleanPath := filepath.Clean(relPath)
	if strings.Contains(cleanPath, "..") || filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("invalid path")
	}
	return filepath.Join(ls.basePath, cleanPath), nil
}
