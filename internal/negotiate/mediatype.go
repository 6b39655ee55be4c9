// Package negotiate implements h2kv's content negotiation: choosing a
// storage key and media type for a write, and choosing a representation
// (by extension or Accept header) for a read, plus the per-path sidecar
// that remembers which extensions exist for a logical path.
package negotiate

import (
	"fmt"
	"mime"
	"sort"
	"strings"
)

// GenericMediaType is the sentinel used whenever a representation's real
// media type cannot be determined.
const GenericMediaType = "application/octet-stream"

// GenericExt is the sentinel extension paired with GenericMediaType.
const GenericExt = "octet-stream"

// MediaType is an owned (type, subtype, parameters) triple. Values are
// copied, never borrowed from request header bytes, so a NegotiatedPath
// can safely outlive the request that produced it.
type MediaType struct {
	Type    string
	Subtype string
	Params  map[string]string
}

// ParseMediaType parses a Content-Type or Accept-candidate string.
func ParseMediaType(s string) (MediaType, error) {
	essence, params, err := mime.ParseMediaType(s)
	if err != nil {
		return MediaType{}, err
	}
	t, sub, ok := strings.Cut(essence, "/")
	if !ok {
		return MediaType{}, fmt.Errorf("negotiate: invalid media type %q", s)
	}
	return MediaType{Type: t, Subtype: sub, Params: params}, nil
}

// Essence returns "type/subtype" without parameters.
func (m MediaType) Essence() string { return m.Type + "/" + m.Subtype }

// String renders the full media type, including parameters, suitable for
// a Content-Type header value.
func (m MediaType) String() string {
	if len(m.Params) == 0 {
		return m.Essence()
	}
	keys := make([]string, 0, len(m.Params))
	for k := range m.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(m.Essence())
	for _, k := range keys {
		b.WriteString("; ")
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m.Params[k])
	}
	return b.String()
}

// IsJSON reports whether the media type's essence starts with
// "application/json". This plain prefix check matches "application/json"
// itself and types such as "application/json-patch+json"; a
// structured-syntax suffix alone, as in "application/vnd.api+json", is
// not matched.
func (m MediaType) IsJSON() bool {
	return strings.HasPrefix(m.Essence(), "application/json")
}

// genericMediaType is the parsed form of GenericMediaType, used as the
// fallback representation for both read and write negotiation.
func genericMediaType() MediaType {
	return MediaType{Type: "application", Subtype: "octet-stream"}
}
