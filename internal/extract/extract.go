// Package extract walks decoded protocol responses and diverts large
// base64 payloads to files on disk, so the textual response handed to
// the caller stays bounded no matter how big a screenshot or captured
// body the browser returned.
//
// Detection is heuristic: a string under a well-known key, long enough,
// shaped like base64. A legitimately long base64-looking string under
// one of those keys will be externalized too; that trade-off is
// accepted because protocol responses carry no schema.
package extract

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultMinLength is the string length above which a candidate field
// is considered for externalization.
const DefaultMinLength = 1000

// DefaultFields are the response keys checked for encoded binary
// content.
var DefaultFields = []string{"data", "content", "body", "screenshot"}

// Options configures a Process pass.
type Options struct {
	// OutputDir receives one file per externalized field. It is
	// created, including parents, if absent.
	OutputDir string

	// Fields overrides DefaultFields when non-nil.
	Fields []string

	// MinLength overrides DefaultMinLength when positive.
	MinLength int
}

// Process returns a copy of v with every matching binary field replaced
// by a file reference. Objects and arrays are rebuilt with the same
// topology; everything that does not match passes through unchanged.
// Process never fails: a file write error degrades into a descriptive
// placeholder string in place of the reference.
func Process(v any, opts Options) any {
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}
	fields := opts.Fields
	if fields == nil {
		fields = DefaultFields
	}
	candidates := make(map[string]bool, len(fields))
	for _, f := range fields {
		candidates[f] = true
	}
	return walk(v, candidates, &opts)
}

func walk(v any, candidates map[string]bool, opts *Options) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, item := range val {
			if s, ok := item.(string); ok && candidates[key] && len(s) > opts.MinLength && isBase64(s) {
				out[key] = externalize(key, s, opts.OutputDir)
				continue
			}
			out[key] = walk(item, candidates, opts)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = walk(item, candidates, opts)
		}
		return out
	default:
		return v
	}
}

// isBase64 reports whether s is made of base64 alphabet characters with
// a length divisible by four. Padding may only appear in the final two
// positions.
func isBase64(s string) bool {
	if len(s)%4 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '+', c == '/':
		case c == '=':
			if i < len(s)-2 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// externalize decodes the payload, writes it under dir, and returns the
// reference string that replaces the original value.
func externalize(field, encoded, dir string) string {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// The alphabet check passed but strict decoding did not; keep
		// the original value rather than lose data.
		return encoded
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Sprintf("failed to save binary data: %v", err)
	}

	name := fmt.Sprintf("%s_%s_%s%s", field, time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8], sniffExt(field, decoded))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, decoded, 0o644); err != nil {
		return fmt.Sprintf("failed to save binary data: %v", err)
	}
	return "binary data saved to: " + path
}

var (
	pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	pdfMagic = []byte("%PDF-")
)

// sniffExt guesses a file extension from the payload's leading bytes.
// Best effort only; a wrong guess is harmless.
func sniffExt(field string, b []byte) string {
	switch {
	case bytes.HasPrefix(b, pngMagic):
		return ".png"
	case len(b) >= 3 && b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return ".jpg"
	case bytes.HasPrefix(b, pdfMagic):
		return ".pdf"
	case field == "data" || field == "screenshot":
		// Screenshot-ish fields are almost always images.
		return ".png"
	default:
		return ".bin"
	}
}
