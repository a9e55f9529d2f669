package entity

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"entity-mapper/fieldkind"
)

// Entity is the capability of a type that converts itself to and from a Map.
// Generated types implement it by delegating to the default Mapper.
type Entity interface {
	FromMap(src Map) error
	ToMap() (Map, error)
}

// Mapper converts between Maps and entity values. It caches one descriptor
// table per type and is safe for concurrent use.
type Mapper struct {
	tagKey  string
	logger  *slog.Logger
	schemas sync.Map // reflect.Type -> *Schema
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithTagKey sets the struct tag consulted for keys and options.
func WithTagKey(key string) Option {
	return func(m *Mapper) {
		m.tagKey = key
	}
}

// WithLogger sets the logger used for schema diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mapper) {
		m.logger = logger
	}
}

// NewMapper creates a Mapper.
func NewMapper(opts ...Option) *Mapper {
	m := &Mapper{tagKey: DefaultTagKey}
	for _, opt := range opts {
		opt(m)
	}

	if m.tagKey == "" {
		m.tagKey = DefaultTagKey
	}

	return m
}

func (m *Mapper) log() *slog.Logger {
	if m.logger != nil {
		return m.logger
	}

	return slog.Default()
}

// TagKey returns the struct tag the mapper reads.
func (m *Mapper) TagKey() string {
	return m.tagKey
}

// SchemaOf returns the descriptor table of a struct type.
func (m *Mapper) SchemaOf(t reflect.Type) (*Schema, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, newError(ErrInvalidTarget, nil, "", fmt.Sprintf("got %v", t))
	}

	if cached, ok := m.schemas.Load(t); ok {
		return cached.(*Schema), nil
	}

	var (
		s      *Schema
		source = "reflect"
	)

	if d, ok := describerOf(t); ok {
		s = d.EntitySchema()
		if err := verifySchema(s, t, m.tagKey); err != nil {
			m.log().Warn("generated entity schema rejected", "type", t.String(), "error", err)
			return nil, err
		}

		source = "generated"
	} else {
		s = buildSchema(t, m.tagKey)
	}

	actual, loaded := m.schemas.LoadOrStore(t, s)
	if !loaded {
		m.log().Debug("entity schema built",
			"type", s.Name(),
			"fields", len(s.Fields),
			"source", source,
		)
	}

	return actual.(*Schema), nil
}

// Check validates the declared field types of t and of every entity type
// reachable from it. t may be a struct type or a pointer to one.
func (m *Mapper) Check(t reflect.Type) error {
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return m.check(t, make(map[reflect.Type]struct{}))
}

func (m *Mapper) check(t reflect.Type, seen map[reflect.Type]struct{}) error {
	if _, ok := seen[t]; ok {
		return nil
	}

	seen[t] = struct{}{}

	s, err := m.SchemaOf(t)
	if err != nil {
		return err
	}

	for i := range s.Fields {
		f := &s.Fields[i]
		if !f.Exported {
			continue
		}

		if err := f.declError(s); err != nil {
			return err
		}

		if f.Kind != fieldkind.KindEntity {
			continue
		}

		if err := m.check(f.Elem(), seen); err != nil {
			return withParent(err, s, f.Key)
		}
	}

	return nil
}

var defaultMapper = NewMapper()

// Default returns the package-level Mapper.
func Default() *Mapper {
	return defaultMapper
}

// FromMap populates target, a pointer to a struct, from src using the default Mapper.
func FromMap(target any, src Map) error {
	return defaultMapper.FromMap(target, src)
}

// ToMap converts v, a struct or pointer to a struct, using the default Mapper.
func ToMap(v any) (Map, error) {
	return defaultMapper.ToMap(v)
}

// New allocates a T and, when src has keys, populates it from src. An empty
// map is treated like nil.
func New[T any](src Map) (*T, error) {
	return NewWith[T](defaultMapper, src)
}

// NewWith is New with an explicit Mapper.
func NewWith[T any](m *Mapper, src Map) (*T, error) {
	out := new(T)
	if len(src) == 0 {
		return out, nil
	}

	if err := m.FromMap(out, src); err != nil {
		return nil, err
	}

	return out, nil
}

// Check validates the entity type T with the default Mapper.
func Check[T any]() error {
	return defaultMapper.Check(reflect.TypeFor[T]())
}
