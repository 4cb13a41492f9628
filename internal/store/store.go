// Package store is the persistence gateway for fingerprint logs and login
// credentials.
package store

import (
	"context"
	"errors"

	"github.com/mx-space/fpcollector/internal/models"
)

// ErrStorage wraps every failure reported by the underlying database.
var ErrStorage = errors.New("storage error")

// Gateway is the contract the request handlers depend on.
type Gateway interface {
	// InsertFingerprint stores rec with a server assigned creation time and
	// returns the stored row.
	InsertFingerprint(ctx context.Context, rec models.FingerprintLog) (*models.FingerprintLog, error)
	// ListFingerprints returns every stored log, newest first.
	ListFingerprints(ctx context.Context) ([]models.FingerprintLog, error)
	// FindCredential looks up a credential by exact email and password match.
	// It returns (nil, nil) when nothing matches.
	FindCredential(ctx context.Context, email, password string) (*models.Credential, error)
}

// CredentialLookup is implemented by gateways that can resolve a credential
// by email alone, which hashed password schemes need.
type CredentialLookup interface {
	FindCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
}
