package mime

import (
	"strconv"
	"strings"
)

// Range is a single media range of the Accept header.
type Range struct {
	MIME    MIME
	Quality float64
}

// ParseAccept splits the Accept header value into media ranges, preserving their order.
// Ranges explicitly refused by q=0 are dropped, and a malformed quality value
// is treated as 1.
func ParseAccept(value string) []Range {
	var ranges []Range

	for len(value) > 0 {
		var entry string
		if comma := strings.IndexByte(value, ','); comma != -1 {
			entry, value = value[:comma], value[comma+1:]
		} else {
			entry, value = value, ""
		}

		mime := Essence(entry)
		if len(mime) == 0 {
			continue
		}

		quality := parseQuality(entry)
		if quality <= 0 {
			continue
		}

		ranges = append(ranges, Range{
			MIME:    strings.ToLower(mime),
			Quality: quality,
		})
	}

	return ranges
}

func parseQuality(entry string) float64 {
	_, params, found := strings.Cut(entry, ";")
	for found {
		var param string
		param, params, found = strings.Cut(params, ";")
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || strings.TrimSpace(key) != "q" {
			continue
		}

		q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 1
		}

		return q
	}

	return 1
}
