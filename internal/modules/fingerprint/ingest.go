package fingerprint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mx-space/fpcollector/internal/models"
	"github.com/mx-space/fpcollector/internal/store"
	"go.uber.org/zap"
)

// ErrMalformedPayload is returned when the body is not a JSON object.
var ErrMalformedPayload = errors.New("malformed payload")

// Notifier is told about every stored record. Failures never fail ingestion.
type Notifier interface {
	Notify(ctx context.Context, rec models.FingerprintLog) error
}

// Service validates nothing beyond JSON syntax: it copies the seven known
// fields into a record and stores it.
type Service struct {
	store    store.Gateway
	notifier Notifier
	logger   *zap.Logger
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithNotifier publishes stored records through n.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// NewService creates an ingestion service writing through gw.
func NewService(gw store.Gateway, logger *zap.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{store: gw, logger: logger.Named("fingerprint")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest parses raw and stores one record.
func (s *Service) Ingest(ctx context.Context, raw []byte) (*models.FingerprintLog, error) {
	rec, err := ParsePayload(raw)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.InsertFingerprint(ctx, rec)
	if err != nil {
		s.logger.Error("store fingerprint", zap.Error(err))
		return nil, err
	}
	s.logger.Debug("fingerprint stored", zap.Uint("id", stored.ID))

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, *stored); err != nil {
			s.logger.Warn("notify fingerprint", zap.Uint("id", stored.ID), zap.Error(err))
		}
	}
	return stored, nil
}

type payload struct {
	Method    json.RawMessage `json:"method"`
	Path      json.RawMessage `json:"path"`
	UserAgent json.RawMessage `json:"userAgent"`
	Language  json.RawMessage `json:"language"`
	Screen    json.RawMessage `json:"screen"`
	Timezone  json.RawMessage `json:"timezone"`
}

type screenPayload struct {
	Width  json.RawMessage `json:"width"`
	Height json.RawMessage `json:"height"`
}

// ParsePayload maps a fingerprint JSON object onto a record. Missing or null
// fields stay nil. A non-string value in a text field is kept as its JSON
// text. Screen dimensions accept numbers and numeric strings, truncated
// toward zero; anything else is nil.
func ParsePayload(raw []byte) (models.FingerprintLog, error) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return models.FingerprintLog{}, fmt.Errorf("%w: expected a JSON object", ErrMalformedPayload)
	}
	var p payload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return models.FingerprintLog{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	rec := models.FingerprintLog{
		Method:    textField(p.Method),
		Path:      textField(p.Path),
		UserAgent: textField(p.UserAgent),
		Language:  textField(p.Language),
		Timezone:  textField(p.Timezone),
	}
	var screen screenPayload
	if isObject(p.Screen) && json.Unmarshal(p.Screen, &screen) == nil {
		rec.ScreenWidth = dimensionField(screen.Width)
		rec.ScreenHeight = dimensionField(screen.Height)
	}
	return rec, nil
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || string(v) == "null"
}

func isObject(v json.RawMessage) bool {
	return len(v) > 0 && v[0] == '{'
}

func textField(v json.RawMessage) *string {
	if isNull(v) {
		return nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return &s
	}
	text := string(v)
	return &text
}

func dimensionField(v json.RawMessage) *int64 {
	if isNull(v) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		var s string
		if json.Unmarshal(v, &s) != nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil
	}
	n := int64(math.Trunc(f))
	return &n
}
