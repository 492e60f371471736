package client

import (
	"context"
	"fmt"

	"github.com/TWRT/tasksync/internal/models"
)

// RemoteClient exchanges the full collection with a remote copy.
type RemoteClient interface {
	Pull(ctx context.Context) (models.Collection, error)
	Push(ctx context.Context, tasks models.Collection) error
}

// NetworkError is a soft failure of one leg of a sync. Op is "pull" or "push".
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (remote): status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s (remote): %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
