// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// Question is one analytics request. Questions are immutable once
// submitted; all mutable workflow state lives in the engine.
type Question struct {
	// ID identifies the request in batch output. Assigned when absent.
	ID string `json:"id" yaml:"id"`

	// Text is the natural-language question.
	Text string `json:"question" yaml:"question"`

	// FormatHint describes the expected answer shape, e.g. "int",
	// "float", "{category:str, total_quantity:int}", or
	// "list[{product:str, revenue:float}]".
	FormatHint string `json:"format_hint" yaml:"format_hint"`
}

// FormatKind discriminates the four supported answer shapes.
type FormatKind string

const (
	FormatInt        FormatKind = "int"
	FormatFloat      FormatKind = "float"
	FormatRecord     FormatKind = "record"
	FormatRecordList FormatKind = "record-list"
)

// FieldSpec is one named, typed field of a record-shaped format hint.
type FieldSpec struct {
	Name string
	Type string // "str", "int", or "float"
}

// FormatSpec is a parsed format hint.
type FormatSpec struct {
	Kind   FormatKind
	Fields []FieldSpec // populated for record and record-list kinds
}

// Scalar reports whether the format expects a single bare number.
func (f FormatSpec) Scalar() bool {
	return f.Kind == FormatInt || f.Kind == FormatFloat
}

// ParseFormatHint parses a format hint into a FormatSpec. Recognized
// forms are "int", "float", "{name:type, ...}" and
// "list[{name:type, ...}]" where type is str, int, or float.
func ParseFormatHint(hint string) (FormatSpec, error) {
	h := strings.TrimSpace(hint)
	switch {
	case h == string(FormatInt):
		return FormatSpec{Kind: FormatInt}, nil
	case h == string(FormatFloat):
		return FormatSpec{Kind: FormatFloat}, nil
	case strings.HasPrefix(h, "list[") && strings.HasSuffix(h, "]"):
		fields, err := parseFields(strings.TrimSpace(h[len("list[") : len(h)-1]))
		if err != nil {
			return FormatSpec{}, fmt.Errorf("parsing format hint %q: %w", hint, err)
		}
		return FormatSpec{Kind: FormatRecordList, Fields: fields}, nil
	case strings.HasPrefix(h, "{") && strings.HasSuffix(h, "}"):
		fields, err := parseFields(h)
		if err != nil {
			return FormatSpec{}, fmt.Errorf("parsing format hint %q: %w", hint, err)
		}
		return FormatSpec{Kind: FormatRecord, Fields: fields}, nil
	}
	return FormatSpec{}, fmt.Errorf("unrecognized format hint %q", hint)
}

// parseFields parses a braced "{name:type, name:type}" field list.
func parseFields(s string) ([]FieldSpec, error) {
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("expected braced field list, got %q", s)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil, fmt.Errorf("empty field list")
	}

	var fields []FieldSpec
	for _, part := range strings.Split(inner, ",") {
		name, typ, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("field %q is not name:type", strings.TrimSpace(part))
		}
		name = strings.TrimSpace(name)
		typ = strings.TrimSpace(typ)
		if name == "" {
			return nil, fmt.Errorf("field %q has an empty name", part)
		}
		switch typ {
		case "str", "int", "float":
		default:
			return nil, fmt.Errorf("field %q has unsupported type %q", name, typ)
		}
		fields = append(fields, FieldSpec{Name: name, Type: typ})
	}
	return fields, nil
}
