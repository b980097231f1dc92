// Package blobstore stores the binary content of uploaded assets.
//
// Two backends implement Store: LocalStore keeps files under a root
// directory, S3Store keeps objects in an S3-compatible bucket. Callers only
// depend on Store; the one behavioural difference they may branch on is
// Kind, which decides how strictly a failed delete is treated.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/dmitrijs2005/gophgallery/internal/common"
)

// Kind tells local and remote backends apart.
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// Blob is what a successful Put hands back.
type Blob struct {
	// Locator is enough to fetch the bytes again.
	Locator string
	// DeleteKey is required to remove a remote object. Empty for local blobs.
	DeleteKey string
}

// Store is the blob storage capability.
type Store interface {
	// Put persists data. Content types outside the allow-list are rejected
	// with common.ErrUnsupportedContentType before anything is written.
	Put(ctx context.Context, data []byte, contentType string) (Blob, error)
	// Open returns the bytes behind locator. The caller closes the reader.
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
	// Delete removes the blob. A blob that is already gone yields
	// common.ErrBlobNotFound.
	Delete(ctx context.Context, locator, deleteKey string) error
	// Exists reports whether the blob behind locator is present.
	Exists(ctx context.Context, locator string) (bool, error)
	Kind() Kind
}

// allowedContentTypes maps accepted media types to file extensions.
var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
}

// AllowedContentTypes lists the canonical media types Put accepts.
func AllowedContentTypes() []string {
	return []string{"image/jpeg", "image/png"}
}

// NormalizeContentType strips parameters and case from contentType and
// checks it against the allow-list. It returns the bare media type and the
// file extension used for it.
func NormalizeContentType(contentType string) (string, string, error) {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(contentType))
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", common.ErrUnsupportedContentType, contentType)
	}
	ext, ok := allowedContentTypes[mediaType]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", common.ErrUnsupportedContentType, mediaType)
	}
	return mediaType, ext, nil
}
