package store

import (
	"context"
	"errors"

	"github.com/tnicklin/vouchbot/models"
)

// Field enumerates the per-guild settings mutable through Set and Unset.
type Field int

const (
	FieldAdminRole Field = iota
	FieldGrantRole
	FieldLogChannel
)

func (f Field) String() string {
	switch f {
	case FieldAdminRole:
		return "admin-role-id"
	case FieldGrantRole:
		return "grant-role-id"
	case FieldLogChannel:
		return "log-channel-id"
	default:
		return "unknown"
	}
}

// ErrNotFound is returned by a Persister when no saved state exists.
var ErrNotFound = errors.New("no saved configuration found")

// ErrNotSet is returned by Unset when the field was already absent, so
// callers can tell "removed" apart from "was not set".
var ErrNotSet = errors.New("setting is not set")

// Persister loads and saves the full configuration document. Save must be
// atomic: a crash mid-save leaves the previously valid copy intact.
type Persister interface {
	Load(ctx context.Context) (*models.GlobalConfig, error)
	Save(ctx context.Context, cfg *models.GlobalConfig) error
}
