package negotiate

import (
	"net/http"
	"path"
	"strings"

	goautoneg "github.com/munnerz/goautoneg"
)

// NegotiatedPath is the result of resolving a logical request path to a
// concrete storage key and media type.
type NegotiatedPath struct {
	StorageKey string
	MediaType  MediaType
}

// ContentTypeHeader returns the value for a Content-Type response header:
// the media type's essence, without parameters.
func (n *NegotiatedPath) ContentTypeHeader() string {
	return n.MediaType.Essence()
}

// ContentLocationHeader returns the value for a Content-Location response
// header: the basename of the storage key, with the sentinel extension
// stripped so the header anchors to the request's own path shape rather
// than the internal storage tree.
func (n *NegotiatedPath) ContentLocationHeader() string {
	base := path.Base(n.StorageKey)
	if strings.HasSuffix(base, "."+GenericExt) {
		base = strings.TrimSuffix(base, "."+GenericExt)
	}
	return "/" + base
}

// hasExtension reports whether logical path p carries a file extension
// and returns it without the leading dot.
func hasExtension(p string) (ext string, ok bool) {
	base := path.Base(p)
	i := strings.LastIndexByte(base, '.')
	if i < 0 || i == len(base)-1 {
		return "", false
	}
	return base[i+1:], true
}

// ForWrite implements the PUT negotiation table: given the logical path
// and the request headers, decide the storage key and media type a
// write should use. A nil result (no error) means negotiation refused
// the request; callers should reply 415. A path carrying the sidecar
// extension is always refused, since its storage key would be a sidecar
// key.
func ForWrite(p string, header http.Header) (*NegotiatedPath, error) {
	ext, hasExt := hasExtension(p)
	if hasExt && "."+ext == sidecarSuffix {
		return nil, nil
	}
	ctRaw := header.Get("Content-Type")

	if ctRaw == "" {
		if hasExt {
			return &NegotiatedPath{StorageKey: p, MediaType: genericMediaType()}, nil
		}
		return &NegotiatedPath{
			StorageKey: pathStem(p) + "." + GenericExt,
			MediaType:  genericMediaType(),
		}, nil
	}

	mt, err := ParseMediaType(ctRaw)
	if err != nil {
		return nil, nil // unparseable content-type: refuse
	}

	if hasExt {
		return &NegotiatedPath{StorageKey: p, MediaType: mt}, nil
	}

	guessed, ok := guessExtFromMediaType(mt.Essence())
	if !ok {
		guessed = GenericExt
	}
	return &NegotiatedPath{
		StorageKey: pathStem(p) + "." + guessed,
		MediaType:  mt,
	}, nil
}

// ForRead implements the GET/HEAD/DELETE negotiation table.
func ForRead(p string, ext *Extensions, header http.Header) (*NegotiatedPath, error) {
	if pathExt, hasExt := hasExtension(p); hasExt && pathExt != GenericExt {
		mt, ok := ext.MediaType(pathExt)
		if !ok {
			return nil, nil
		}
		return &NegotiatedPath{StorageKey: p, MediaType: mt}, nil
	}

	accept := header.Get("Accept")
	if accept != "" {
		candidates := ext.MediaTypes()
		alternatives := make([]string, 0, len(candidates))
		byEssence := make(map[string]MediaType, len(candidates))
		for _, mt := range candidates {
			essence := mt.Essence()
			alternatives = append(alternatives, essence)
			byEssence[essence] = mt
		}

		chosen := goautoneg.Negotiate(accept, alternatives)
		if chosen == "" {
			return nil, nil
		}
		mt := byEssence[chosen]

		matchExt, ok := ext.ExtensionFor(mt)
		if !ok {
			return nil, nil
		}
		return &NegotiatedPath{
			StorageKey: pathStem(p) + "." + matchExt,
			MediaType:  mt,
		}, nil
	}

	if _, ok := ext.MediaType(GenericExt); ok {
		return &NegotiatedPath{
			StorageKey: pathStem(p) + "." + GenericExt,
			MediaType:  genericMediaType(),
		}, nil
	}

	return nil, nil
}

// GuessMediaType looks up the media type implied by ext via the reverse
// of the static MIME table, for use by the filesystem importer when it
// has a filename but no Content-Type to go on.
func GuessMediaType(ext string) (MediaType, bool) {
	essence, ok := guessMediaTypeFromExt(ext)
	if !ok {
		return MediaType{}, false
	}
	mt, err := ParseMediaType(essence)
	if err != nil {
		return MediaType{}, false
	}
	return mt, true
}
