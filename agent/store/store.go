package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownKind   = errors.New("unknown record kind")
	ErrEmptyRecord   = errors.New("record has no fields")
	ErrInvalidFilter = errors.New("invalid record filter")
)

// Kind names one domain entity collection.
type Kind string

const (
	KindGoals           Kind = "goals"
	KindMealTypes       Kind = "meal_type"
	KindCookbook        Kind = "cookbook"
	KindFoodLog         Kind = "food_log"
	KindEquipmentGroups Kind = "equipment_groups"
	KindEquipmentItems  Kind = "equipment_items"
)

// tableFor maps kinds onto table names. The explicit allowlist keeps
// arbitrary strings out of SQL identifiers.
func tableFor(kind Kind) (string, bool) {
	switch kind {
	case KindGoals, KindMealTypes, KindCookbook, KindFoodLog,
		KindEquipmentGroups, KindEquipmentItems:
		return string(kind), true
	}
	return "", false
}

// Record is one row as an open field-to-value mapping.
type Record map[string]any

// Text renders the named field as a string, or "" when absent.
func (r Record) Text(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Int reads the named field as an int, accepting the numeric shapes database
// drivers commonly hand back. Absent or non-numeric fields read as zero.
func (r Record) Int(field string) int {
	switch v := r[field].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

type FilterOp int

const (
	// FilterEq keeps rows whose field equals the value.
	FilterEq FilterOp = iota
	// FilterSince keeps rows whose field is at or after the value; used on
	// timestamp columns for windowed reads.
	FilterSince
)

type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Store is the domain-record collaborator boundary. Callers degrade a query
// error to an empty result and an insert error to a false side-effect flag;
// the store itself reports errors honestly.
type Store interface {
	Query(ctx context.Context, kind Kind, filter *Filter) ([]Record, error)
	Insert(ctx context.Context, kind Kind, rec Record) error
}
