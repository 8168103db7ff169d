package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrKeyExists is returned when a Put targets a key that already holds an
// object. Keys are write-once in this pipeline.
var ErrKeyExists = errors.New("blob key already exists")

// Store holds raw uploaded files under stable content keys.
type Store interface {
	// Put writes the object under key. Keys are write-once: a second Put of
	// the same key fails with ErrKeyExists.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get opens the object stored under key for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
