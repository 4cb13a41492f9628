// Package render holds the embedded HTML pages served by the collector.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/mx-space/fpcollector/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	missing          = "-"
	createdAtLayout  = "2006-01-02 15:04:05"
	loginTemplate    = "login.html"
	logsTemplate     = "logs.html"
	announcementPage = "announcement.html"
)

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// LoginView feeds the login page. Empty fields are not rendered.
type LoginView struct {
	Error string
	Alert string
}

// LogRow is one fingerprint record formatted for the logs table.
type LogRow struct {
	ID         string
	Method     string
	Path       string
	UserAgent  string
	Language   string
	Resolution string
	Timezone   string
	CreatedAt  string
}

// AnnouncementView feeds the announcement page. Body is trusted HTML.
type AnnouncementView struct {
	Title     string
	Heading   string
	Body      template.HTML
	ImageURL  string
	ScriptSrc string
}

// Login renders the login page.
func Login(view LoginView) ([]byte, error) {
	return execute(loginTemplate, view)
}

// Logs renders the log table, one row per record in the given order.
func Logs(records []models.FingerprintLog) ([]byte, error) {
	rows := make([]LogRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, NewLogRow(rec))
	}
	return execute(logsTemplate, struct{ Rows []LogRow }{Rows: rows})
}

// Announcement renders the announcement page.
func Announcement(view AnnouncementView) ([]byte, error) {
	return execute(announcementPage, view)
}

// NewLogRow formats rec, replacing absent values with "-".
func NewLogRow(rec models.FingerprintLog) LogRow {
	row := LogRow{
		ID:         missing,
		Method:     orMissing(rec.Method),
		Path:       orMissing(rec.Path),
		UserAgent:  orMissing(rec.UserAgent),
		Language:   orMissing(rec.Language),
		Resolution: dimension(rec.ScreenWidth) + "x" + dimension(rec.ScreenHeight),
		Timezone:   orMissing(rec.Timezone),
		CreatedAt:  missing,
	}
	if rec.ID != 0 {
		row.ID = strconv.FormatUint(uint64(rec.ID), 10)
	}
	if !rec.CreatedAt.IsZero() {
		row.CreatedAt = rec.CreatedAt.In(time.UTC).Format(createdAtLayout)
	}
	return row
}

func orMissing(v *string) string {
	if v == nil || *v == "" {
		return missing
	}
	return *v
}

func dimension(v *int64) string {
	if v == nil {
		return missing
	}
	return strconv.FormatInt(*v, 10)
}

func execute(name string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
