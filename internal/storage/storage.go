package storage

import (
	"io"
	"mime/multipart"
)

type FileInfo struct {
	Filename    string
	ContentType string
	Size        int64
}

// Storage holds files under a single root, addressed by relative paths.
// The service runs two instances: one for uploaded source videos and one
// for produced artifacts (annotated videos, evidence snapshots, reports).
type Storage interface {
	SaveUpload(file multipart.File, info FileInfo) (string, error)
	SaveBytes(relPath string, data []byte) (string, error)
	OpenFile(relPath string) (io.ReadSeekCloser, error)
	DeleteFile(relPath string) error
	DeleteDir(relPath string) error
	AbsPath(relPath string) (string, error)
}
