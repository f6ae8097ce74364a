package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"chat-relay/internal/logger"
	"chat-relay/internal/repository/storage"

	"github.com/sirupsen/logrus"
)

// Document is one whole JSON document held in a storage backend. Every
// mutation reads the current contents, applies a change and rewrites the
// document; mu serializes that cycle inside this process only.
type Document[T any] struct {
	backend storage.Backend
	name    string
	initial func() T

	mu sync.Mutex
}

// NewDocument binds name in backend. initial produces the contents written
// when the document does not exist yet.
func NewDocument[T any](backend storage.Backend, name string, initial func() T) *Document[T] {
	return &Document[T]{backend: backend, name: name, initial: initial}
}

// Load returns the current contents, creating the document if it is missing
func (d *Document[T]) Load(ctx context.Context) (T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load(ctx)
}

// Update applies fn to the current contents and persists the result.
// Nothing is written when fn returns an error.
func (d *Document[T]) Update(ctx context.Context, fn func(T) (T, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	return d.save(ctx, next)
}

func (d *Document[T]) load(ctx context.Context) (T, error) {
	var value T

	data, err := d.backend.Read(ctx, d.name)
	if errors.Is(err, storage.ErrNotExist) {
		value = d.initial()
		if err := d.save(ctx, value); err != nil {
			return value, err
		}
		logger.Log.WithField("document", d.name).Info("Initialized document")
		return value, nil
	}
	if err != nil {
		return value, err
	}

	// A corrupt document is reported rather than replaced, so a bad edit on
	// disk never silently wipes accounts or shares.
	if err := json.Unmarshal(data, &value); err != nil {
		logger.Log.WithFields(logrus.Fields{"document": d.name, "error": err}).Error("Corrupt document")
		return value, fmt.Errorf("error decoding %s: %w", d.name, err)
	}
	return value, nil
}

func (d *Document[T]) save(ctx context.Context, value T) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", d.name, err)
	}
	if err := d.backend.Write(ctx, d.name, data); err != nil {
		return fmt.Errorf("error saving %s: %w", d.name, err)
	}
	return nil
}
