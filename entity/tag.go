package entity

import (
	"reflect"
	"strings"
)

// DefaultTagKey is the struct tag consulted for keys and field options.
const DefaultTagKey = "entity"

// Tag options.
const (
	optOptional = "optional"
	optNotNull  = "notnull"
)

// Tag is the parsed form of a field's struct tag.
type Tag struct {
	Key      string
	Skip     bool
	Optional bool
	NotNull  bool
}

// ParseTag resolves the map key and options of a struct field. The key comes from
// the tagKey tag, then the json tag name, then the Go field name.
func ParseTag(fieldName string, tag reflect.StructTag, tagKey string) Tag {
	raw, ok := tag.Lookup(tagKey)
	if ok && raw == "-" {
		return Tag{Skip: true}
	}

	name, opts, _ := strings.Cut(raw, ",")

	var out Tag
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")

		switch strings.TrimSpace(opt) {
		case optOptional:
			out.Optional = true
		case optNotNull:
			out.NotNull = true
		}
	}

	if name == "" {
		name = jsonTagName(tag)
		if name == "-" {
			return Tag{Skip: true}
		}
	}

	if name == "" {
		name = fieldName
	}

	out.Key = name

	return out
}

func jsonTagName(tag reflect.StructTag) string {
	v := tag.Get("json")
	if v == "" {
		return ""
	}

	if v == "-" {
		return v
	}

	// trim options
	if idx := strings.IndexByte(v, ','); idx >= 0 {
		v = v[:idx]
	}

	return v
}
