package entity_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entity-mapper/entity"
	"entity-mapper/fieldkind"
)

type UserLocation struct {
	City string `entity:"city"`
}

type User struct {
	Name     string       `entity:"name"`
	Age      int          `entity:"age"`
	Location UserLocation `entity:"location"`
	Friend   *User        `entity:"friend"`
}

type Address struct {
	City string `entity:"city"`
	Zip  string `entity:"zip"`
}

type Office struct {
	Floor   uint8   `entity:"floor"`
	Address Address `entity:"address"`
}

type Company struct {
	Name   string  `entity:"name"`
	Rating float64 `entity:"rating"`
	HQ     *Office `entity:"hq,notnull"`
}

type Profile struct {
	Handle string         `entity:"handle"`
	Attrs  map[string]any `entity:"attrs"`
	Bio    *string        `entity:"bio"`
	Active bool           `entity:"active,optional"`
}

type Account struct {
	Login  string `entity:"login"`
	secret string `entity:"secret"`
}

type Loose struct {
	Data any `entity:"data"`
}

type Tagged struct {
	Tags []string `entity:"tags"`
}

type Event struct {
	Name string    `entity:"name"`
	When time.Time `entity:"when"`
}

type Settings struct {
	Theme   string `entity:"theme,optional"`
	Retries int    `entity:"retries"`
}

type Legacy struct {
	Title    string `json:"title,omitempty"`
	Internal string `entity:"-"`
	Plain    string
}

type Pair struct {
	Left  *UserLocation `entity:"left"`
	Right *UserLocation `entity:"right"`
}

func bobMap() entity.Map {
	return entity.Map{
		"name":     "Bob",
		"age":      30,
		"location": entity.Map{"city": "Tampa"},
		"friend": entity.Map{
			"name":     "Alice",
			"age":      25,
			"location": entity.Map{"city": "Miami"},
		},
	}
}

func requireKind(t *testing.T, err error, kind error) *entity.Error {
	t.Helper()

	require.Error(t, err)
	require.ErrorIs(t, err, kind, spew.Sdump(err))

	var e *entity.Error
	require.True(t, errors.As(err, &e))

	return e
}

func TestFromMap_WorkedExample(t *testing.T) {
	t.Parallel()

	var user User
	require.NoError(t, entity.FromMap(&user, bobMap()))

	assert.Equal(t, "Bob", user.Name)
	assert.Equal(t, 30, user.Age)
	assert.Equal(t, "Tampa", user.Location.City)
	require.NotNil(t, user.Friend)
	assert.Equal(t, "Alice", user.Friend.Name)
	assert.Equal(t, 25, user.Friend.Age)
	assert.Equal(t, "Miami", user.Friend.Location.City)
	assert.Nil(t, user.Friend.Friend)

	out, err := entity.ToMap(&user)
	require.NoError(t, err)

	want := bobMap()
	want["friend"].(entity.Map)["friend"] = nil

	assert.Equal(t, want, out)
}

func TestToMap_ConstructedInstance(t *testing.T) {
	t.Parallel()

	user := User{
		Name:     "Bob",
		Age:      30,
		Location: UserLocation{City: "Tampa"},
		Friend: &User{
			Name:     "Alice",
			Age:      25,
			Location: UserLocation{City: "Miami"},
		},
	}

	out, err := entity.ToMap(user)
	require.NoError(t, err)

	assert.Equal(t, "Bob", out["name"])
	assert.Equal(t, 30, out["age"])
	assert.Equal(t, "Tampa", out["location"].(entity.Map)["city"])

	friend := out["friend"].(entity.Map)
	assert.Equal(t, "Alice", friend["name"])
	assert.Equal(t, "Miami", friend["location"].(entity.Map)["city"])
	assert.Contains(t, friend, "friend")
	assert.Nil(t, friend["friend"])
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	bio := "gopher"

	tests := []struct {
		name string
		in   any
		out  func() any
	}{
		{
			name: "self-referencing user",
			in: &User{
				Name:     "Bob",
				Age:      30,
				Location: UserLocation{City: "Tampa"},
				Friend:   &User{Name: "Alice", Age: 25, Location: UserLocation{City: "Miami"}},
			},
			out: func() any { return &User{} },
		},
		{
			name: "three levels",
			in: &Company{
				Name:   "Acme",
				Rating: 4.5,
				HQ:     &Office{Floor: 12, Address: Address{City: "Tampa", Zip: "33602"}},
			},
			out: func() any { return &Company{} },
		},
		{
			name: "map and nullable scalar",
			in: &Profile{
				Handle: "bob",
				Attrs:  map[string]any{"theme": "dark", "limits": map[string]any{"daily": 3}},
				Bio:    &bio,
				Active: true,
			},
			out: func() any { return &Profile{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src, err := entity.ToMap(tt.in)
			require.NoError(t, err)

			got := tt.out()
			require.NoError(t, entity.FromMap(got, src), spew.Sdump(src))
			assert.Equal(t, tt.in, got)
		})
	}
}

func TestNestedRecursion_ThreeLevels(t *testing.T) {
	t.Parallel()

	src := entity.Map{
		"name":   "Acme",
		"rating": 4,
		"hq": entity.Map{
			"floor":   7,
			"address": map[string]any{"city": "Tampa", "zip": "33602"},
		},
	}

	var c Company
	require.NoError(t, entity.FromMap(&c, src))
	require.NotNil(t, c.HQ)
	assert.Equal(t, 4.0, c.Rating)
	assert.Equal(t, uint8(7), c.HQ.Floor)
	assert.Equal(t, "33602", c.HQ.Address.Zip)

	out, err := entity.ToMap(c)
	require.NoError(t, err)

	hq := out["hq"].(entity.Map)
	assert.Equal(t, uint8(7), hq["floor"])
	assert.Equal(t, entity.Map{"city": "Tampa", "zip": "33602"}, hq["address"])
}

func TestFromMap_UnknownField(t *testing.T) {
	t.Parallel()

	src := bobMap()
	src["age"] = "not a number"
	src["shoe_size"] = 44

	var user User
	e := requireKind(t, entity.FromMap(&user, src), entity.ErrUnknownField)
	assert.Equal(t, "shoe_size", e.Field)
	assert.Equal(t, "entity_test.User", e.Type)
	assert.Empty(t, e.Message)

	// an unexported key sorting first does not hide the unknown one
	var a Account
	e = requireKind(t, entity.FromMap(&a, entity.Map{"login": "bob", "secret": "x", "zzz": 1}), entity.ErrUnknownField)
	assert.Equal(t, "zzz", e.Field)
}

func TestFromMap_UnknownFieldSuggestion(t *testing.T) {
	t.Parallel()

	src := bobMap()
	src["locaton"] = src["location"]
	delete(src, "location")

	var user User
	e := requireKind(t, entity.FromMap(&user, src), entity.ErrUnknownField)
	assert.Equal(t, "locaton", e.Field)
	assert.Equal(t, `did you mean "location"?`, e.Message)
}

func TestFromMap_NestedUnknownFieldPath(t *testing.T) {
	t.Parallel()

	src := bobMap()
	src["friend"].(entity.Map)["location"] = entity.Map{"city": "Miami", "state": "FL"}

	var user User
	e := requireKind(t, entity.FromMap(&user, src), entity.ErrUnknownField)
	assert.Equal(t, "friend.location.state", e.Field)
	assert.Equal(t, "entity_test.User", e.Type)
}

func TestFromMap_Completeness(t *testing.T) {
	t.Parallel()

	src := entity.Map{"name": "Bob", "location": entity.Map{"city": "Tampa"}}

	var user User
	e := requireKind(t, entity.FromMap(&user, src), entity.ErrUninitializedField)
	assert.Equal(t, "age", e.Field)
	assert.Equal(t, src, e.Context)
}

func TestFromMap_OptionalAndConstructedDefaults(t *testing.T) {
	t.Parallel()

	s := Settings{Retries: 3}
	require.NoError(t, entity.FromMap(&s, entity.Map{}))
	assert.Equal(t, Settings{Retries: 3}, s)

	var empty Settings
	e := requireKind(t, entity.FromMap(&empty, entity.Map{"theme": "dark"}), entity.ErrUninitializedField)
	assert.Equal(t, "retries", e.Field)
}

func TestFromMap_MapPassthrough(t *testing.T) {
	t.Parallel()

	attrs := map[string]any{
		"city":   "Tampa",
		"nested": map[string]any{"name": "not an entity", "list": []any{1, 2}},
	}

	var p Profile
	require.NoError(t, entity.FromMap(&p, entity.Map{"handle": "bob", "attrs": attrs}))
	assert.Equal(t, attrs, p.Attrs)
	assert.Nil(t, p.Bio)
	assert.False(t, p.Active)

	out, err := entity.ToMap(p)
	require.NoError(t, err)
	assert.Equal(t, attrs, out["attrs"])

	// the output is a copy of the field's map
	out["attrs"].(map[string]any)["city"] = "Miami"
	assert.Equal(t, "Tampa", p.Attrs["city"])
}

func TestNullableBoundary(t *testing.T) {
	t.Parallel()

	t.Run("nullable null round-trips", func(t *testing.T) {
		t.Parallel()

		var p Profile
		require.NoError(t, entity.FromMap(&p, entity.Map{"handle": "bob", "attrs": entity.Map{}, "bio": nil}))
		assert.Nil(t, p.Bio)

		out, err := entity.ToMap(p)
		require.NoError(t, err)
		assert.Contains(t, out, "bio")
		assert.Nil(t, out["bio"])
	})

	t.Run("non-nullable null in ToMap", func(t *testing.T) {
		t.Parallel()

		_, err := entity.ToMap(Company{Name: "Acme"})
		e := requireKind(t, err, entity.ErrUnsupportedType)
		assert.Equal(t, "hq", e.Field)
	})

	t.Run("non-nullable null in FromMap", func(t *testing.T) {
		t.Parallel()

		var c Company
		err := entity.FromMap(&c, entity.Map{"name": "Acme", "rating": 1.5, "hq": nil})
		requireKind(t, err, entity.ErrTypeMismatch)
	})

	t.Run("nil map was never assigned", func(t *testing.T) {
		t.Parallel()

		_, err := entity.ToMap(Profile{Handle: "bob"})
		e := requireKind(t, err, entity.ErrUninitializedField)
		assert.Equal(t, "attrs", e.Field)
	})
}

func TestFromMap_TypeMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"string into int", "age", "thirty"},
		{"float into int", "age", 30.5},
		{"bool into string", "name", true},
		{"scalar into entity", "location", "Tampa"},
		{"uint overflows int", "age", uint64(1 << 63)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := bobMap()
			src[tt.key] = tt.value

			var user User
			e := requireKind(t, entity.FromMap(&user, src), entity.ErrTypeMismatch)
			assert.Equal(t, tt.key, e.Field)
		})
	}
}

func TestFromMap_NumericWidening(t *testing.T) {
	t.Parallel()

	var c Company
	src := entity.Map{
		"name":   "Acme",
		"rating": int64(5),
		"hq":     entity.Map{"floor": int32(3), "address": entity.Map{"city": "Tampa", "zip": "33602"}},
	}
	require.NoError(t, entity.FromMap(&c, src))
	assert.Equal(t, 5.0, c.Rating)
	assert.Equal(t, uint8(3), c.HQ.Floor)

	src["hq"].(entity.Map)["floor"] = 300
	e := requireKind(t, entity.FromMap(&Company{}, src), entity.ErrTypeMismatch)
	assert.Equal(t, "hq.floor", e.Field)

	src["hq"].(entity.Map)["floor"] = -1
	requireKind(t, entity.FromMap(&Company{}, src), entity.ErrTypeMismatch)

	src["hq"].(entity.Map)["floor"] = 3
	src["rating"] = int64(1 << 53)
	require.NoError(t, entity.FromMap(&c, src))
	assert.Equal(t, float64(1<<53), c.Rating)

	for _, rating := range []any{int64(1<<53 + 1), uint64(1<<64 - 1), json.Number("9007199254740993")} {
		src["rating"] = rating
		e = requireKind(t, entity.FromMap(&Company{}, src), entity.ErrTypeMismatch)
		assert.Equal(t, "rating", e.Field)
		assert.Contains(t, e.Message, "has no exact float64 representation")
	}

	src["rating"] = json.Number("4.5")
	require.NoError(t, entity.FromMap(&c, src))
	assert.Equal(t, 4.5, c.Rating)
}

func TestFromMap_NumericWideningFloat32(t *testing.T) {
	t.Parallel()

	type Reading struct {
		Value float32 `entity:"value"`
	}

	var r Reading
	require.NoError(t, entity.FromMap(&r, entity.Map{"value": 1 << 24}))
	assert.Equal(t, float32(1<<24), r.Value)

	e := requireKind(t, entity.FromMap(&r, entity.Map{"value": 1<<24 + 1}), entity.ErrTypeMismatch)
	assert.Equal(t, "value", e.Field)

	requireKind(t, entity.FromMap(&r, entity.Map{"value": json.Number("16777217")}), entity.ErrTypeMismatch)
}

func TestFromMap_Accessibility(t *testing.T) {
	t.Parallel()

	var a Account
	e := requireKind(t, entity.FromMap(&a, entity.Map{"login": "bob", "secret": "hunter2"}), entity.ErrAccessibility)
	assert.Equal(t, "secret", e.Field)

	require.NoError(t, entity.FromMap(&a, entity.Map{"login": "bob"}))

	out, err := entity.ToMap(Account{Login: "bob", secret: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, entity.Map{"login": "bob"}, out)
}

func TestFromMap_UnsupportedValue(t *testing.T) {
	t.Parallel()

	src := bobMap()
	src["name"] = []string{"Bob"}

	var user User
	e := requireKind(t, entity.FromMap(&user, src), entity.ErrUnsupportedValue)
	assert.Equal(t, "name", e.Field)
}

func TestFromMap_InvalidFieldType(t *testing.T) {
	t.Parallel()

	src := bobMap()
	src["age"] = entity.Map{"years": 30}

	var user User
	requireKind(t, entity.FromMap(&user, src), entity.ErrInvalidFieldType)

	var ev Event
	err := entity.FromMap(&ev, entity.Map{"name": "launch", "when": entity.Map{"wall": 1}})
	requireKind(t, err, entity.ErrInvalidFieldType)
}

func TestDeclaredTypeErrors(t *testing.T) {
	t.Parallel()

	requireKind(t, entity.FromMap(&Loose{}, entity.Map{"data": 1}), entity.ErrMissingTypeDeclaration)
	requireKind(t, entity.FromMap(&Loose{}, entity.Map{"data": entity.Map{}}), entity.ErrMissingTypeDeclaration)

	_, err := entity.ToMap(Loose{Data: 1})
	requireKind(t, err, entity.ErrMissingTypeDeclaration)

	_, err = entity.ToMap(Tagged{Tags: []string{"a"}})
	requireKind(t, err, entity.ErrUnsupportedType)

	_, err = entity.ToMap(Event{Name: "launch", When: time.Now()})
	e := requireKind(t, err, entity.ErrUnsupportedType)
	assert.Equal(t, "when", e.Field)

	requireKind(t, entity.FromMap(&Tagged{}, entity.Map{"tags": "a"}), entity.ErrUnsupportedType)
}

func TestCheck(t *testing.T) {
	t.Parallel()

	assert.NoError(t, entity.Check[User]())
	assert.NoError(t, entity.Check[Company]())
	assert.NoError(t, entity.Default().Check(reflect.TypeFor[*Profile]()))

	requireKind(t, entity.Check[Loose](), entity.ErrMissingTypeDeclaration)
	requireKind(t, entity.Check[Tagged](), entity.ErrUnsupportedType)

	type Wrapper struct {
		Inner Event `entity:"inner"`
	}

	e := requireKind(t, entity.Check[Wrapper](), entity.ErrUnsupportedType)
	assert.Equal(t, "inner.when", e.Field)

	requireKind(t, entity.Check[int](), entity.ErrInvalidTarget)
}

func TestToMap_CyclicReference(t *testing.T) {
	t.Parallel()

	bob := &User{Name: "Bob", Age: 30, Location: UserLocation{City: "Tampa"}}
	alice := &User{Name: "Alice", Age: 25, Location: UserLocation{City: "Miami"}, Friend: bob}
	bob.Friend = alice

	_, err := entity.ToMap(bob)
	e := requireKind(t, err, entity.ErrCyclicReference)
	assert.Equal(t, "friend.friend", e.Field)

	self := &User{Name: "Narcissus", Location: UserLocation{City: "Thespiae"}}
	self.Friend = self

	_, err = entity.ToMap(self)
	requireKind(t, err, entity.ErrCyclicReference)
}

func TestToMap_SharedInstanceIsNotACycle(t *testing.T) {
	t.Parallel()

	loc := &UserLocation{City: "Tampa"}

	out, err := entity.ToMap(Pair{Left: loc, Right: loc})
	require.NoError(t, err)
	assert.Equal(t, out["left"], out["right"])
}

func TestInvalidTarget(t *testing.T) {
	t.Parallel()

	requireKind(t, entity.FromMap(User{}, bobMap()), entity.ErrInvalidTarget)
	requireKind(t, entity.FromMap((*User)(nil), bobMap()), entity.ErrInvalidTarget)
	requireKind(t, entity.FromMap(nil, bobMap()), entity.ErrInvalidTarget)

	_, err := entity.ToMap(42)
	requireKind(t, err, entity.ErrInvalidTarget)

	_, err = entity.ToMap((*User)(nil))
	requireKind(t, err, entity.ErrInvalidTarget)
}

func TestNew(t *testing.T) {
	t.Parallel()

	user, err := entity.New[User](bobMap())
	require.NoError(t, err)
	assert.Equal(t, "Miami", user.Friend.Location.City)

	empty, err := entity.New[User](nil)
	require.NoError(t, err)
	assert.Equal(t, &User{}, empty)

	empty, err = entity.New[User](entity.Map{})
	require.NoError(t, err)
	assert.Equal(t, &User{}, empty)

	_, err = entity.New[User](entity.Map{"name": "Bob"})
	requireKind(t, err, entity.ErrUninitializedField)
}

func TestTagFallbacks(t *testing.T) {
	t.Parallel()

	var l Legacy
	require.NoError(t, entity.FromMap(&l, entity.Map{"title": "Dr", "Plain": "x"}))
	assert.Equal(t, Legacy{Title: "Dr", Plain: "x"}, l)

	requireKind(t, entity.FromMap(&Legacy{}, entity.Map{"title": "Dr", "Plain": "x", "Internal": "y"}),
		entity.ErrUnknownField)

	out, err := entity.ToMap(Legacy{Title: "Dr", Internal: "hidden", Plain: "x"})
	require.NoError(t, err)
	assert.Equal(t, entity.Map{"title": "Dr", "Plain": "x"}, out)
}

func TestWithTagKey(t *testing.T) {
	t.Parallel()

	type Row struct {
		ID   int    `db:"id"   entity:"ignored"`
		Name string `db:"name"`
	}

	m := entity.NewMapper(entity.WithTagKey("db"))
	assert.Equal(t, "db", m.TagKey())

	var r Row
	require.NoError(t, m.FromMap(&r, entity.Map{"id": 1, "name": "bob"}))
	assert.Equal(t, Row{ID: 1, Name: "bob"}, r)
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	src := bobMap()
	src["friend"].(entity.Map)["location"] = entity.Map{"city": 5}

	var user User
	err := entity.FromMap(&user, src)
	require.Error(t, err)
	assert.Equal(t,
		"entity entity_test.User field friend.location.city: value does not match declared field type: cannot assign int to string",
		err.Error())
}

func TestWithLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := entity.NewMapper(entity.WithLogger(logger))

	_, err := m.SchemaOf(reflect.TypeFor[User]())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "entity schema built")
	assert.Contains(t, buf.String(), "source=reflect")
}

func TestSchemaOf(t *testing.T) {
	t.Parallel()

	m := entity.NewMapper()

	s, err := m.SchemaOf(reflect.TypeFor[Profile]())
	require.NoError(t, err)
	assert.Equal(t, "entity_test.Profile", s.Name())
	require.Len(t, s.Fields, 4)

	bio, ok := s.Lookup("bio")
	require.True(t, ok)
	assert.Equal(t, fieldkind.KindString, bio.Kind)
	assert.True(t, bio.Nullable)

	attrs, _ := s.Lookup("attrs")
	assert.Equal(t, fieldkind.KindMap, attrs.Kind)
	assert.False(t, attrs.Nullable)

	active, _ := s.Lookup("active")
	assert.True(t, active.Optional)

	again, err := m.SchemaOf(reflect.TypeFor[Profile]())
	require.NoError(t, err)
	assert.Same(t, s, again)

	c, err := m.SchemaOf(reflect.TypeFor[Company]())
	require.NoError(t, err)
	hq, _ := c.Lookup("hq")
	assert.Equal(t, fieldkind.KindEntity, hq.Kind)
	assert.False(t, hq.Nullable)
}

func TestConcurrentUse(t *testing.T) {
	t.Parallel()

	m := entity.NewMapper()

	var wg sync.WaitGroup
	errs := make(chan error, 16)

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			var user User
			if err := m.FromMap(&user, bobMap()); err != nil {
				errs <- err
				return
			}

			if _, err := m.ToMap(&user); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
