// Package storage abstracts where whole JSON documents are kept. Every
// backend reads and rewrites a document as a unit, so the last writer wins.
package storage

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Read when the document has never been written
var ErrNotExist = errors.New("document does not exist")

// Backend stores named documents
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Close() error
}
