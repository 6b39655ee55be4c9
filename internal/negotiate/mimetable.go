package negotiate

// mimeToExt maps a media type essence to its preferred file extension,
// used when a PUT supplies a content-type but the logical path carries
// no extension of its own.
var mimeToExt = map[string]string{
	"text/plain":              "txt",
	"text/html":               "html",
	"text/css":                "css",
	"text/csv":                "csv",
	"text/markdown":           "md",
	"text/xml":                "xml",
	"application/json":        "json",
	"application/xml":         "xml",
	"application/javascript":  "js",
	"application/pdf":         "pdf",
	"application/zip":         "zip",
	"application/x-yaml":      "yaml",
	"application/octet-stream": GenericExt,
	"image/png":               "png",
	"image/jpeg":               "jpg",
	"image/gif":                "gif",
	"image/svg+xml":            "svg",
	"image/webp":               "webp",
	"audio/mpeg":               "mp3",
	"audio/wav":                "wav",
	"video/mp4":                "mp4",
}

// extToMIME is the reverse of mimeToExt, used by the filesystem importer
// to guess a media type from a file's extension.
var extToMIME map[string]string

func init() {
	extToMIME = make(map[string]string, len(mimeToExt))
	for mt, ext := range mimeToExt {
		if _, exists := extToMIME[ext]; !exists {
			extToMIME[ext] = mt
		}
	}
}

// guessExtFromMediaType implements spec's "guess extension from media
// type" static table lookup. ok is false when no guess is known.
func guessExtFromMediaType(essence string) (ext string, ok bool) {
	ext, ok = mimeToExt[essence]
	return ext, ok
}

// guessMediaTypeFromExt is the reverse lookup used by GuessMediaType.
func guessMediaTypeFromExt(ext string) (essence string, ok bool) {
	essence, ok = extToMIME[ext]
	return essence, ok
}
