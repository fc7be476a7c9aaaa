package models

import (
	"bytes"
	"encoding/json"
)

// Nullable is a JSON field that distinguishes "absent" from an explicit null.
// Set is true when the key appeared in the payload; Value is nil for null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if d, ok := any(v).(Date); ok && d.IsZero() {
		// An empty date string clears the field like null.
		n.Value = nil
		return nil
	}
	n.Value = &v
	return nil
}

// NullableOf returns a set Nullable holding v.
func NullableOf[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Apply overwrites *dst when the field was present in the payload.
func (n Nullable[T]) Apply(dst **T) {
	if n.Set {
		*dst = n.Value
	}
}
