// Package storage keeps uploaded photo bytes and hands back a stable path
// clients can fetch them from.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Storage interface {
	// Save stores the bytes under name and returns the retrievable path.
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	// Delete removes an object previously returned by Save.
	Delete(ctx context.Context, path string) error
}

// ObjectName builds a unique object name for a user's upload, preserving the
// lower-cased extension.
func ObjectName(userID int64, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%d_%s%s", userID, uuid.NewString(), ext)
}
