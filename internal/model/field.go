package model

import (
	"bytes"
	"encoding/json"
)

// Field is an optional value in a partial update. Set distinguishes an
// absent key from an explicit null.
type Field[T any] struct {
	Set   bool
	Value T
}

// SetTo returns a Field carrying v.
func SetTo[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.Value = zero
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
