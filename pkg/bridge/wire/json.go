// Copyright 2024-2026 Aiku AI

package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Nested wraps a payload that the legacy wire format double-encodes: the
// JSON value is a string whose content is itself JSON text. Newer server
// versions send the same payload as a plain object; both forms decode to
// the same value. Encoding always emits the double-encoded string form.
type Nested[T any] struct {
	V T
}

// NestedOf is a convenience constructor, mostly for tests.
func NestedOf[T any](v T) Nested[T] {
	return Nested[T]{V: v}
}

func (n *Nested[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(inner), &n.V); err != nil {
			return fmt.Errorf("embedded JSON: %w", err)
		}
		return nil
	}
	return json.Unmarshal(data, &n.V)
}

func (n Nested[T]) MarshalJSON() ([]byte, error) {
	inner, err := json.Marshal(n.V)
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(inner))
}

// StringSet is a set transmitted as a single space-separated string.
// Null and empty strings decode to an empty set; encoding joins the
// members with single spaces in sorted order.
type StringSet map[string]struct{}

// NewStringSet builds a set from its members.
func NewStringSet(elems ...string) StringSet {
	s := make(StringSet, len(elems))
	for _, e := range elems {
		s[e] = struct{}{}
	}
	return s
}

// Contains reports whether v is a member of the set.
func (s StringSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = StringSet{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	set := StringSet{}
	for _, tok := range strings.Fields(raw) {
		set[tok] = struct{}{}
	}
	*s = set
	return nil
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.Join(slices.Sorted(maps.Keys(s)), " "))
}

// Seconds is a timestamp the legacy wire format carries as whole seconds
// since the epoch. Sub-second precision never survives a round trip.
// A zero wire value decodes to the zero time.
type Seconds struct {
	time.Time
}

// SecondsOf truncates t to whole-second precision.
func SecondsOf(t time.Time) Seconds {
	if t.IsZero() {
		return Seconds{}
	}
	return Seconds{time.Unix(t.Unix(), 0)}
}

func (s *Seconds) UnmarshalJSON(data []byte) error {
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == 0 {
		s.Time = time.Time{}
	} else {
		s.Time = time.Unix(v, 0)
	}
	return nil
}

func (s Seconds) MarshalJSON() ([]byte, error) {
	if s.IsZero() {
		return []byte("0"), nil
	}
	return json.Marshal(s.Unix())
}
