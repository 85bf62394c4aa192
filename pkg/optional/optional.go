// Package optional provides an explicit "may be absent" value so that
// consumers must handle absence instead of reading a missing field as zero.
package optional

import (
	"bytes"
	"encoding/json"
)

// Value holds either a T or nothing.
// The zero Value is absent.
type Value[T any] struct {
	v  T
	ok bool
}

// Some returns a present value
func Some[T any](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

// None returns an absent value
func None[T any]() Value[T] {
	return Value[T]{}
}

// FromPtr converts a pointer into a Value (nil is absent)
func FromPtr[T any](p *T) Value[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

// Get returns the value and whether it is present
func (o Value[T]) Get() (T, bool) {
	return o.v, o.ok
}

// IsPresent reports whether a value is held
func (o Value[T]) IsPresent() bool {
	return o.ok
}

// IsZero reports absence; lets `json:",omitzero"` drop absent fields.
func (o Value[T]) IsZero() bool {
	return !o.ok
}

// OrElse returns the held value or fallback when absent
func (o Value[T]) OrElse(fallback T) T {
	if !o.ok {
		return fallback
	}
	return o.v
}

// MarshalJSON encodes the held value, or null when absent
func (o Value[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.v)
}

// UnmarshalJSON decodes null as absent
func (o *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Value[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
