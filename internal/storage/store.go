package storage

import (
	"context"

	"hookweave/internal/action"
)

// CaptureRecord is one persisted capture session.
type CaptureRecord struct {
	ID        int64
	Kind      string
	WorkDir   string
	ExitCode  int
	CreatedAt string
}

// Store persists capture sessions, their build actions and rendered call
// graphs across tool invocations.
type Store interface {
	// SaveCapture records one finished capture and its normalized actions,
	// returning the new session id.
	SaveCapture(ctx context.Context, rec CaptureRecord, actions []action.BuildAction) (int64, error)

	// LoadActions returns the ordered actions of a session.
	LoadActions(ctx context.Context, sessionID int64) ([]action.BuildAction, error)

	// LatestCapture returns the most recent capture record.
	LatestCapture(ctx context.Context) (*CaptureRecord, error)

	// ListPackages returns the distinct package paths across all stored
	// actions, ordered lexically.
	ListPackages(ctx context.Context) ([]string, error)

	// SaveForest stores one rendered call-graph snapshot.
	SaveForest(ctx context.Context, rendered string) error

	// LatestForest returns the most recent rendered call-graph snapshot.
	LatestForest(ctx context.Context) (string, error)

	Close() error
}
