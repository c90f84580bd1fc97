// Package storage defines the interface for persisting downloaded run
// outputs. The abstraction keeps the workflow independent of where results
// land: local disk for the guides, in-memory for tests.
package storage

import (
	"context"
	"io"
)

// Provider saves a named output read from content and reports where it ended
// up.
type Provider interface {
	Save(ctx context.Context, name string, content io.Reader) (string, error)
}
