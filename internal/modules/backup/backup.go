// Package backup exports the fingerprint log to JSON files on a schedule.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/mx-space/fpcollector/internal/models"
	"github.com/mx-space/fpcollector/internal/pkg/cron"
	"github.com/mx-space/fpcollector/internal/store"
	"go.uber.org/zap"
)

// JobName identifies the backup job in the scheduler.
const JobName = "fingerprint-backup"

const (
	filenameLayout = "20060102-150405"
	contentType    = "application/json"
)

// Uploader stores a finished export remotely.
type Uploader interface {
	Upload(ctx context.Context, key string, payload []byte, contentType string) error
}

// Snapshot is the exported document.
type Snapshot struct {
	ExportedAt time.Time               `json:"exported_at"`
	Count      int                     `json:"count"`
	Logs       []models.FingerprintLog `json:"logs"`
}

// Service writes a snapshot of every fingerprint log into dir and, when an
// uploader is set, under prefix in remote storage.
type Service struct {
	gateway  store.Gateway
	dir      string
	uploader Uploader
	prefix   string
	now      func() time.Time
	logger   *zap.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithUploader sends every export to u under prefix.
func WithUploader(u Uploader, prefix string) Option {
	return func(s *Service) {
		s.uploader = u
		s.prefix = prefix
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a backup service writing into dir.
func NewService(gateway store.Gateway, dir string, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{gateway: gateway, dir: dir, now: time.Now, logger: logger.Named("backup")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Job wraps Run for the scheduler.
func (s *Service) Job(interval time.Duration) cron.Job {
	return cron.Job{Name: JobName, Interval: interval, Fn: func(ctx context.Context) error {
		_, err := s.Run(ctx)
		return err
	}}
}

// Run exports once and returns the local file path.
func (s *Service) Run(ctx context.Context) (string, error) {
	records, err := s.gateway.ListFingerprints(ctx)
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	if records == nil {
		records = []models.FingerprintLog{}
	}
	payload, err := json.MarshalIndent(Snapshot{ExportedAt: now, Count: len(records), Logs: records}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	filename := fmt.Sprintf("fingerprints-%s.json", now.Format(filenameLayout))
	target := filepath.Join(s.dir, filename)
	if err := os.WriteFile(target, payload, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	s.logger.Info("backup written", zap.String("path", target), zap.Int("count", len(records)))

	if s.uploader != nil {
		key := path.Join(s.prefix, filename)
		if err := s.uploader.Upload(ctx, key, payload, contentType); err != nil {
			return target, fmt.Errorf("upload backup %s: %w", key, err)
		}
		s.logger.Info("backup uploaded", zap.String("key", key))
	}
	return target, nil
}
