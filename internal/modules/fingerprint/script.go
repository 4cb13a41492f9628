package fingerprint

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

//go:embed assets/collector.js
var collectorSource string

const (
	endpointPlaceholder = "__FPCOLLECTOR_ENDPOINT__"
	// IngestPath is where the collection script posts fingerprints.
	IngestPath = "/api/fingerprint"
)

// ScriptBuilder renders the collection script for a given ingest endpoint.
// The source is prepared once; each request only substitutes the endpoint.
type ScriptBuilder struct {
	before string
	after  string
}

// NewScriptBuilder prepares the embedded collector, minifying it with esbuild
// when minify is set.
func NewScriptBuilder(minify bool) (*ScriptBuilder, error) {
	source := collectorSource
	if minify {
		result := api.Transform(source, api.TransformOptions{
			Loader:            api.LoaderJS,
			Target:            api.ES2017,
			Sourcefile:        "fingerprint.js",
			Charset:           api.CharsetUTF8,
			MinifyWhitespace:  true,
			MinifyIdentifiers: true,
			MinifySyntax:      true,
		})
		if len(result.Errors) > 0 {
			return nil, fmt.Errorf("minify collector: %s", result.Errors[0].Text)
		}
		source = string(result.Code)
	}

	before, after, ok := strings.Cut(source, endpointPlaceholder)
	if !ok {
		return nil, fmt.Errorf("collector script lost its endpoint placeholder")
	}
	return &ScriptBuilder{before: before, after: after}, nil
}

// Build returns the script posting to endpoint. The endpoint is escaped for
// a JavaScript string literal since it is derived from the Host header.
func (b *ScriptBuilder) Build(endpoint string) []byte {
	escaped := template.JSEscapeString(endpoint)
	out := make([]byte, 0, len(b.before)+len(escaped)+len(b.after))
	out = append(out, b.before...)
	out = append(out, escaped...)
	out = append(out, b.after...)
	return out
}

// EndpointURL is the ingest URL on the host that served the script.
func EndpointURL(scheme, host string) string {
	return scheme + "://" + host + IngestPath
}
