package dbtypes

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// OptionSet is the identity of a purchasable variant: one option id per axis.
// Members are kept sorted and unique so two sets built from the same ids in a
// different order are equal and share the same Key.
type OptionSet []uuid.UUID

// NewOptionSet normalizes ids into a canonical set. Nil ids are dropped.
func NewOptionSet(ids ...uuid.UUID) OptionSet {
	out := make(OptionSet, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// Normalize returns the canonical form of s.
func (s OptionSet) Normalize() OptionSet {
	return NewOptionSet(s...)
}

// Key is the canonical string form used for unique indexes and map lookups.
// The empty set has the empty key.
func (s OptionSet) Key() string {
	norm := s.Normalize()
	parts := make([]string, len(norm))
	for i, id := range norm {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func (s OptionSet) Equal(other OptionSet) bool {
	return s.Key() == other.Key()
}

func (s OptionSet) Contains(id uuid.UUID) bool {
	for _, candidate := range s {
		if candidate == id {
			return true
		}
	}
	return false
}

func (s OptionSet) IsEmpty() bool {
	return len(s.Normalize()) == 0
}

// ParseOptionSet builds a set from raw string ids.
func ParseOptionSet(raw []string) (OptionSet, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("OptionSet: parse %q: %w", value, err)
		}
		ids = append(ids, id)
	}
	return NewOptionSet(ids...), nil
}

// Value stores the canonical set as a JSON array.
func (s OptionSet) Value() (driver.Value, error) {
	norm := s.Normalize()
	payload, err := json.Marshal([]uuid.UUID(norm))
	if err != nil {
		return nil, fmt.Errorf("OptionSet: marshal: %w", err)
	}
	return string(payload), nil
}

func (s *OptionSet) Scan(src any) error {
	if src == nil {
		*s = OptionSet{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("OptionSet: unsupported Scan type %T", src)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		*s = OptionSet{}
		return nil
	}

	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("OptionSet: unmarshal: %w", err)
	}
	*s = NewOptionSet(ids...)
	return nil
}
