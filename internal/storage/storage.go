package storage

import (
	"context"
	"errors"
)

// Storage is the durable named-snapshot store both state containers read from
// at startup and write to after every mutation.
// Consumers define this interface, not the backing implementation.
type Storage interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
}

var ErrSnapshotNotFound = errors.New("snapshot not found")
