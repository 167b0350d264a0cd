package storage

import (
	"context"
	"errors"
	"io"
)

const (
	ContentTypePDF   = "application/pdf"
	ContentTypeXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	folderMimeType   = "application/vnd.google-apps.folder"
	driveViewLinkFmt = "https://drive.google.com/file/d/%s/view"
)

var ErrNotConfigured = errors.New("storage credentials missing")

// File is a single upload into an existing folder.
type File struct {
	Name        string
	ParentID    string
	ContentType string
	Body        io.Reader
}

// Storage is the hierarchical file store the upload pipeline writes to.
type Storage interface {
	// EnsureFolder returns the id of a folder called name directly under
	// parentID, creating it when none exists.
	EnsureFolder(ctx context.Context, name, parentID string) (string, error)
	// UploadFile stores f and returns the new file's id.
	UploadFile(ctx context.Context, f File) (string, error)
	// ViewLink returns a browser link for a stored file id.
	ViewLink(fileID string) string
}

// EnsurePath walks names below rootID, ensuring each level exists, and
// returns the id of the deepest folder.
func EnsurePath(ctx context.Context, s Storage, rootID string, names ...string) (string, error) {
	parentID := rootID
	for _, name := range names {
		id, err := s.EnsureFolder(ctx, name, parentID)
		if err != nil {
			return "", err
		}
		parentID = id
	}
	return parentID, nil
}
