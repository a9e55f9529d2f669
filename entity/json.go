package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var errTrailingData = errors.New("unexpected data after top-level value")

// DecodeJSON populates target from a JSON document holding a single object.
// Numbers keep their literal form until they are checked against the declared
// field type.
func (m *Mapper) DecodeJSON(data []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var src Map
	if err := dec.Decode(&src); err != nil {
		return fmt.Errorf("decoding JSON document: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding JSON document: %w", errTrailingData)
	}

	if src == nil {
		return fmt.Errorf("decoding JSON document: %w", newError(ErrUnsupportedValue, nil, "", "document is null"))
	}

	return m.FromMap(target, src)
}

// EncodeJSON converts v with ToMap and marshals the result. Object keys are
// sorted.
func (m *Mapper) EncodeJSON(v any) ([]byte, error) {
	src, err := m.ToMap(v)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("encoding JSON document: %w", err)
	}

	return data, nil
}
