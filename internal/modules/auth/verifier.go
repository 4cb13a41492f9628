package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/mx-space/fpcollector/internal/config"
	"github.com/mx-space/fpcollector/internal/models"
	"github.com/mx-space/fpcollector/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// ErrCredentialMismatch means no credential matched the submitted pair.
var ErrCredentialMismatch = errors.New("credential mismatch")

// Verifier is the single place credentials are compared. Swapping the
// implementation changes the password scheme without touching handlers.
type Verifier interface {
	Verify(ctx context.Context, email, password string) (*models.Credential, error)
}

// PlainVerifier matches email and password by equality in the store.
type PlainVerifier struct {
	gateway store.Gateway
}

// Verify implements Verifier.
func (v PlainVerifier) Verify(ctx context.Context, email, password string) (*models.Credential, error) {
	cred, err := v.gateway.FindCredential(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrCredentialMismatch
	}
	return cred, nil
}

// BcryptVerifier looks the credential up by email and compares a bcrypt hash.
type BcryptVerifier struct {
	lookup store.CredentialLookup
}

// Verify implements Verifier.
func (v BcryptVerifier) Verify(ctx context.Context, email, password string) (*models.Credential, error) {
	cred, err := v.lookup.FindCredentialByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrCredentialMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.Password), []byte(password)); err != nil {
		return nil, ErrCredentialMismatch
	}
	return cred, nil
}

// NewVerifier picks the verifier for a configured password scheme.
func NewVerifier(scheme string, gateway store.Gateway) (Verifier, error) {
	switch scheme {
	case "", config.PasswordSchemePlain:
		return PlainVerifier{gateway: gateway}, nil
	case config.PasswordSchemeBcrypt:
		lookup, ok := gateway.(store.CredentialLookup)
		if !ok {
			return nil, fmt.Errorf("password scheme %q needs a gateway that can look up by email", scheme)
		}
		return BcryptVerifier{lookup: lookup}, nil
	default:
		return nil, fmt.Errorf("unsupported password scheme %q", scheme)
	}
}

// HashPassword prepares a password for storage under scheme.
func HashPassword(scheme, password string) (string, error) {
	switch scheme {
	case "", config.PasswordSchemePlain:
		return password, nil
	case config.PasswordSchemeBcrypt:
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("hash password: %w", err)
		}
		return string(hashed), nil
	default:
		return "", fmt.Errorf("unsupported password scheme %q", scheme)
	}
}
