package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mx-space/fpcollector/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL implements Gateway on top of gorm.
type SQL struct {
	db  *gorm.DB
	now func() time.Time
}

var (
	_ Gateway          = (*SQL)(nil)
	_ CredentialLookup = (*SQL)(nil)
)

// Option configures a SQL gateway.
type Option func(*SQL)

// WithClock overrides the clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQL) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSQL wraps an open gorm connection.
func NewSQL(db *gorm.DB, opts ...Option) *SQL {
	s := &SQL{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying connection.
func (s *SQL) DB() *gorm.DB { return s.db }

func (s *SQL) InsertFingerprint(ctx context.Context, rec models.FingerprintLog) (*models.FingerprintLog, error) {
	rec.ID = 0
	rec.CreatedAt = s.now().UTC()
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("%w: insert fingerprint: %w", ErrStorage, err)
	}
	return &rec, nil
}

func (s *SQL) ListFingerprints(ctx context.Context) ([]models.FingerprintLog, error) {
	var rows []models.FingerprintLog
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list fingerprints: %w", ErrStorage, err)
	}
	return rows, nil
}

func (s *SQL) FindCredential(ctx context.Context, email, password string) (*models.Credential, error) {
	var rows []models.Credential
	err := s.db.WithContext(ctx).
		Where("email = ? AND password = ?", email, password).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: find credential: %w", ErrStorage, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *SQL) FindCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	var rows []models.Credential
	err := s.db.WithContext(ctx).
		Where("email = ?", email).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: find credential: %w", ErrStorage, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// UpsertCredential creates the credential or replaces password and name of
// the row with the same email.
func (s *SQL) UpsertCredential(ctx context.Context, cred models.Credential) error {
	cred.ID = 0
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"password", "name"}),
		}).
		Create(&cred).Error
	if err != nil {
		return fmt.Errorf("%w: upsert credential: %w", ErrStorage, err)
	}
	return nil
}
