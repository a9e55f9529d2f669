package analyze

import (
	"strings"
)

// KeyPath builds a readable path of map keys through nested entities.
// Examples:
//   - "User" for the root entity
//   - "User.location" for a nested entity field
//   - "User.location.city" for a field within it
type KeyPath struct {
	parts []string
}

// NewKeyPath creates a new KeyPath from a root type name.
func NewKeyPath(root string) *KeyPath {
	return &KeyPath{
		parts: []string{root},
	}
}

// Key appends a map key to the path.
func (p *KeyPath) Key(key string) *KeyPath {
	return &KeyPath{
		parts: append(append([]string{}, p.parts...), key),
	}
}

// String returns the full path string.
func (p *KeyPath) String() string {
	return strings.Join(p.parts, ".")
}

// KeyPaths lists every key path reachable from an entity type, descending into
// nested entities up to maxDepth levels. Recursive types stop at the first
// repetition on a path.
func (g *TypeGraph) KeyPaths(id TypeID, maxDepth int) []string {
	root := g.GetType(id)
	if root == nil {
		return nil
	}

	var out []string

	onPath := map[TypeID]bool{id: true}
	g.collectKeyPaths(root, NewKeyPath(id.Name), onPath, &out, 0, maxDepth)

	return out
}

func (g *TypeGraph) collectKeyPaths(
	t *TypeInfo, path *KeyPath, onPath map[TypeID]bool, out *[]string, depth, maxDepth int,
) {
	if depth > maxDepth {
		return
	}

	for i := range t.Fields {
		field := &t.Fields[i]
		if !field.Exported {
			continue
		}

		fieldPath := path.Key(field.Key)
		*out = append(*out, fieldPath.String())

		if field.Entity == nil || onPath[*field.Entity] {
			continue
		}

		nested := g.GetType(*field.Entity)
		if nested == nil {
			continue
		}

		onPath[*field.Entity] = true
		g.collectKeyPaths(nested, fieldPath, onPath, out, depth+1, maxDepth)
		delete(onPath, *field.Entity)
	}
}
