package surface

import (
	"bytes"
	"fmt"
	"path"
	"strings"
)

// Section is one spine item laid out as plain words.
type Section struct {
	Href  string
	Title string
	Words []string
}

// Format parses one kind of book file.
type Format interface {
	Name() string
	MediaTypes() []string
	Extensions() []string
	Parse(f File) (*Book, []Section, error)
}

var registry []Format

// Register adds a format to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// Lookup finds the format for f, by media type first and extension second.
func Lookup(f File) (Format, error) {
	mt := strings.ToLower(f.MediaType)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt != "" {
		for _, format := range registry {
			for _, m := range format.MediaTypes() {
				if mt == m {
					return format, nil
				}
			}
		}
	}

	ext := strings.ToLower(path.Ext(f.Name))
	for _, format := range registry {
		for _, e := range format.Extensions() {
			if ext == e {
				return format, nil
			}
		}
	}
	return nil, fmt.Errorf("unsupported format %q (%s)", f.Name, f.MediaType)
}

// MediaTypeFor guesses a media type from a file name, falling back to
// sniffing the content: zip archives are taken to be EPUB.
func MediaTypeFor(name string, data []byte) string {
	ext := strings.ToLower(path.Ext(name))
	for _, format := range registry {
		for _, e := range format.Extensions() {
			if ext == e && len(format.MediaTypes()) > 0 {
				return format.MediaTypes()[0]
			}
		}
	}
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return mediaTypeEPUB
	}
	return "text/plain"
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}
