package mime

import (
	"strings"

	"github.com/indigo-web/utils/strcomp"
)

type MIME = string

const (
	OctetStream    MIME = "application/octet-stream"
	Plain          MIME = "text/plain"
	HTML           MIME = "text/html"
	XML            MIME = "text/xml"
	JSON           MIME = "application/json"
	YAML           MIME = "application/yaml"
	FormUrlencoded MIME = "application/x-www-form-urlencoded"
	Multipart      MIME = "multipart/form-data"
	CSS            MIME = "text/css"
	JS             MIME = "text/javascript"
	PNG            MIME = "image/png"
	Any            MIME = "*/*"
)

// Essence returns the type/subtype part of the media type with parameters and
// surrounding whitespaces removed.
func Essence(value string) MIME {
	if semicolon := strings.IndexByte(value, ';'); semicolon != -1 {
		value = value[:semicolon]
	}

	return strings.TrimSpace(value)
}

// Complies returns whether two MIMEs are equal, ignoring parameters and letter case. Empty MIME
// is considered compatible with any other MIME.
func Complies(mime MIME, with string) bool {
	with = Essence(with)
	return len(with) == 0 || strcomp.EqualFold(mime, with)
}

// IsPattern reports whether the media type contains a wildcard, e.g. text/* or */*.
func IsPattern(mime MIME) bool {
	return strings.IndexByte(mime, '*') != -1
}

// Covers reports whether the pattern covers the concrete media type. Patterns are either
// */* or type/*; a pattern without a wildcard covers only an equal type.
func Covers(pattern, mime MIME) bool {
	pattern, mime = Essence(pattern), Essence(mime)
	if pattern == Any {
		return len(mime) > 0
	}

	typ, subtype, ok := strings.Cut(pattern, "/")
	if !ok {
		return false
	}

	if subtype != "*" {
		return strcomp.EqualFold(pattern, mime)
	}

	mimeType, _, ok := strings.Cut(mime, "/")
	return ok && strcomp.EqualFold(typ, mimeType)
}
