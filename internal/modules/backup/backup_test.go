package backup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mx-space/fpcollector/internal/config"
	"github.com/mx-space/fpcollector/internal/models"
	"github.com/mx-space/fpcollector/internal/pkg/cron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	rows []models.FingerprintLog
	err  error
}

func (f *fakeGateway) InsertFingerprint(context.Context, models.FingerprintLog) (*models.FingerprintLog, error) {
	return nil, errors.New("not used")
}

func (f *fakeGateway) ListFingerprints(context.Context) ([]models.FingerprintLog, error) {
	return f.rows, f.err
}

func (f *fakeGateway) FindCredential(context.Context, string, string) (*models.Credential, error) {
	return nil, nil
}

type memoryUploader struct {
	key         string
	payload     []byte
	contentType string
	err         error
}

func (m *memoryUploader) Upload(_ context.Context, key string, payload []byte, contentType string) error {
	m.key, m.payload, m.contentType = key, payload, contentType
	return m.err
}

var fixedNow = time.Date(2024, 5, 1, 3, 4, 5, 0, time.UTC)

func TestRunWritesSnapshotAndUploads(t *testing.T) {
	tz := "UTC"
	gw := &fakeGateway{rows: []models.FingerprintLog{
		{Base: models.Base{ID: 2}, Timezone: &tz, CreatedAt: fixedNow},
		{Base: models.Base{ID: 1}, CreatedAt: fixedNow.Add(-time.Hour)},
	}}
	up := &memoryUploader{}
	dir := filepath.Join(t.TempDir(), "backups")
	svc := NewService(gw, dir, nil, WithUploader(up, "fingerprints"), WithClock(func() time.Time { return fixedNow }))

	target, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "fingerprints-20240501-030405.json"), target)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(content, &snap))
	assert.Equal(t, 2, snap.Count)
	assert.True(t, snap.ExportedAt.Equal(fixedNow))
	require.Len(t, snap.Logs, 2)
	assert.Equal(t, uint(2), snap.Logs[0].ID)

	assert.Equal(t, "fingerprints/fingerprints-20240501-030405.json", up.key)
	assert.Equal(t, "application/json", up.contentType)
	assert.Equal(t, content, up.payload)
}

func TestRunEmptyStoreAndFailures(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(&fakeGateway{}, dir, nil, WithClock(func() time.Time { return fixedNow }))
	target, err := svc.Run(context.Background())
	require.NoError(t, err)
	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"logs": []`)

	_, err = NewService(&fakeGateway{err: errors.New("locked")}, dir, nil).Run(context.Background())
	assert.EqualError(t, err, "locked")

	up := &memoryUploader{err: errors.New("access denied")}
	target, err = NewService(&fakeGateway{}, dir, nil, WithUploader(up, "p")).Run(context.Background())
	assert.ErrorContains(t, err, "access denied")
	assert.FileExists(t, target, "local copy survives a failed upload")
}

func TestJobRegistersWithScheduler(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(&fakeGateway{}, dir, nil)
	sched := cron.New(nil)
	require.NoError(t, sched.Register(svc.Job(time.Hour)))

	require.NoError(t, sched.RunNow(context.Background(), JobName))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, cron.StatusOK, sched.Jobs()[0].Status)
}

func TestS3UploaderPutsObject(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   []byte
		ctype  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method, path, ctype = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	up, err := NewS3Uploader(config.S3Config{
		Bucket:          "archive",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		PathStyle:       true,
	})
	require.NoError(t, err)
	require.NoError(t, up.Upload(context.Background(), "fingerprints/a.json", []byte(`{"count":0}`), "application/json"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/archive/fingerprints/a.json", path)
	assert.Equal(t, "application/json", ctype)
	assert.Contains(t, string(body), `{"count":0}`)
}

func TestNewS3UploaderNeedsBucketAndRegion(t *testing.T) {
	_, err := NewS3Uploader(config.S3Config{Bucket: "archive"})
	assert.Error(t, err)
}
