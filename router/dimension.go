package router

import "strings"

// Dimension is a single aspect of a request routes are matched by.
type Dimension uint8

const (
	Method Dimension = 1 << iota
	Path
	ContentType
	Accept
)

// dimensions lists every dimension in the order they're matched.
var dimensions = [...]Dimension{Method, Path, ContentType, Accept}

func (d Dimension) String() string {
	switch d {
	case Method:
		return "method"
	case Path:
		return "path"
	case ContentType:
		return "content-type"
	case Accept:
		return "accept"
	default:
		return "unknown"
	}
}

// Dimensions is a set of dimensions.
type Dimensions uint8

func (d Dimensions) Has(dim Dimension) bool {
	return d&Dimensions(dim) != 0
}

func (d Dimensions) With(dim Dimension) Dimensions {
	return d | Dimensions(dim)
}

func (d Dimensions) Empty() bool {
	return d == 0
}

func (d Dimensions) String() string {
	var names []string
	for _, dim := range dimensions {
		if d.Has(dim) {
			names = append(names, dim.String())
		}
	}

	return "{" + strings.Join(names, ", ") + "}"
}
