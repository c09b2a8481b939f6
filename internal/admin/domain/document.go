package domain

import (
	"time"

	"github.com/wardenhq/warden/pkg/idx"
)

// Document is a stored file reference. The bytes live in object storage;
// the row carries ownership and scoping metadata for access checks.
type Document struct {
	ID          idx.ID
	Key         string // object storage key
	Name        string
	ContentType string
	Size        int64
	Domain      string
	UploadedBy  idx.ID
	CreatedAt   time.Time
}
