package models

import "time"

// Asset is the metadata record of one stored blob.
type Asset struct {
	// ID is assigned by the metadata store on insert.
	ID string `json:"id"`
	// OwnerID references the uploading User. Empty only on legacy rows
	// written before ownership was recorded.
	OwnerID string `json:"ownerId,omitempty"`

	// BlobLocator is a path relative to the upload root (local backend) or
	// an object URL (s3 backend).
	BlobLocator string `json:"fileUrl"`
	// BlobDeleteKey identifies the object for removal on the s3 backend.
	// Empty for the local backend, where the locator is the delete key.
	BlobDeleteKey string `json:"-"`

	// Category is stored lowercased.
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	// GroupID tags the rows of one batch upload. Advisory only.
	GroupID string `json:"groupId,omitempty"`

	CreatedAt time.Time `json:"uploadedAt"`
}

// Owned reports whether the asset carries an owner reference.
func (a *Asset) Owned() bool {
	return a.OwnerID != ""
}
