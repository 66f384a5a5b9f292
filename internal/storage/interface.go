// Package storage keeps import run reports on disk, laid out as
// reports/<store>/<source>/<name>.
package storage

import (
	"context"
	"time"
)

// Metadata describes a stored report
type Metadata struct {
	ContentType string    `json:"contentType,omitempty"`
	RunID       string    `json:"runId,omitempty"`
	Store       string    `json:"store,omitempty"`
	Source      string    `json:"source,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FileInfo contains information about a stored report
type FileInfo struct {
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Metadata   *Metadata `json:"metadata,omitempty"`
}

// createdAt is the report time used for ordering. Reports without metadata
// fall back to the file time.
func (fi FileInfo) createdAt() time.Time {
	if fi.Metadata != nil && !fi.Metadata.CreatedAt.IsZero() {
		return fi.Metadata.CreatedAt
	}
	return fi.ModifiedAt
}

// Storage defines the interface for report storage
type Storage interface {
	// Put stores a report with optional metadata, replacing any previous one.
	Put(ctx context.Context, key Key, content []byte, metadata *Metadata) error

	// Get returns the report content.
	Get(ctx context.Context, key Key) ([]byte, error)

	// GetInfo returns report information without content.
	GetInfo(ctx context.Context, key Key) (*FileInfo, error)

	// List returns the reports matching f, newest first.
	List(ctx context.Context, f Filter) ([]FileInfo, error)
}
