package simpleasset

import (
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxNameSegment    = 100
	fallbackName      = "arquivo"
	fallbackExtension = "bin"
)

// Clock supplies timestamps for storage keys.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// PathDeriver turns (tenant, category, subcategory, name) into storage keys.
// Stamps it hands out are strictly increasing within the process, so two
// concurrent uploads of the same input never share a key.
type PathDeriver struct {
	clock Clock
	last  atomic.Int64
}

// NewPathDeriver returns a deriver using clock, or the system clock when nil.
func NewPathDeriver(clock Clock) *PathDeriver {
	if clock == nil {
		clock = systemClock{}
	}
	return &PathDeriver{clock: clock}
}

// DerivePath resolves the folder for category and optional subcategory.
func DerivePath(category Category, subcategory string) (string, error) {
	spec, err := LookupCategory(category)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(subcategory) == "" {
		return spec.Folder, nil
	}
	token := NormalizeSubcategory(subcategory)
	if token == "" {
		return "", &ValidationError{Field: "subcategory", Reason: "has no usable characters"}
	}
	if !spec.permitsSubcategory(token) {
		return "", &ValidationError{Field: "subcategory", Reason: fmt.Sprintf("%q is not permitted for category %s", token, category)}
	}
	return spec.Folder + "/" + token, nil
}

// DeriveKey derives the folder and builds a key stamped with the next
// timestamp.
func (d *PathDeriver) DeriveKey(tenantID uuid.UUID, category Category, subcategory, name, ext string) (string, error) {
	folder, err := DerivePath(category, subcategory)
	if err != nil {
		return "", err
	}
	return BuildStorageKey(tenantID, folder, name, ext, d.nextStamp()), nil
}

func (d *PathDeriver) nextStamp() int64 {
	now := d.clock.Now().UnixNano()
	for {
		last := d.last.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if d.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// BuildStorageKey is deterministic for fixed inputs:
// <tenant>/<folder>/<stamp>_<sanitized-name>.<ext>
func BuildStorageKey(tenantID uuid.UUID, folder, name, ext string, stamp int64) string {
	ext = sanitizeExtension(ext)
	if ext == "" {
		ext = fallbackExtension
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if !strings.EqualFold(strings.TrimPrefix(filepath.Ext(name), "."), ext) {
		base = name
	}
	leaf := fmt.Sprintf("%d_%s.%s", stamp, SanitizeName(base), ext)
	return path.Join(tenantID.String(), folder, leaf)
}

// NormalizeSubcategory lowercases, folds accents, collapses whitespace to
// single underscores and drops anything that could add a path segment.
func NormalizeSubcategory(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(foldAccents(s)), "_"))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// SanitizeName folds accents and replaces every run of non-alphanumeric
// characters with one underscore. "Catálogo 2024" becomes "Catalogo_2024".
func SanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range foldAccents(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	out := b.String()
	if len(out) > maxNameSegment {
		out = strings.TrimRight(out[:maxNameSegment], "_")
	}
	if out == "" {
		return fallbackName
	}
	return out
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

var knownExtensions = map[string]string{
	"application/pdf":    "pdf",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "docx",
	"application/vnd.ms-excel":                                                  "xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "xlsx",
	"application/vnd.ms-powerpoint":                                             "ppt",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
	"application/json": "json",
	"application/zip":  "zip",
	"text/plain":       "txt",
	"text/csv":         "csv",
	"text/markdown":    "md",
	"image/jpeg":       "jpg",
	"image/png":        "png",
	"image/gif":        "gif",
	"image/webp":       "webp",
	"image/svg+xml":    "svg",
}

// ResolveExtension picks the file extension (without dot) from the original
// name first, then the MIME type.
func ResolveExtension(originalName, mimeType string) string {
	if ext := sanitizeExtension(filepath.Ext(originalName)); ext != "" {
		return ext
	}
	mediaType := strings.ToLower(strings.TrimSpace(mimeType))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	if ext, ok := knownExtensions[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return sanitizeExtension(exts[0])
	}
	return fallbackExtension
}

func sanitizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	var b strings.Builder
	for _, r := range ext {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() > 10 {
		return ""
	}
	return b.String()
}
