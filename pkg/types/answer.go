// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AnswerKind discriminates the final answer payload.
type AnswerKind string

const (
	AnswerAbsent  AnswerKind = "absent"
	AnswerInt     AnswerKind = "int"
	AnswerFloat   AnswerKind = "float"
	AnswerRecord  AnswerKind = "record"
	AnswerRecords AnswerKind = "record-list"
)

// Field is one named value inside a record answer. Values are string,
// int64, or float64.
type Field struct {
	Name  string
	Value any
}

// Record is an ordered set of named fields. Field order follows the
// format hint, which is why records are slices rather than maps.
type Record []Field

// MarshalJSON encodes the record as a JSON object preserving field
// order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshaling field %s: %w", f.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Answer is the polymorphic final answer: absent, a number, a single
// record, or a list of records. The zero value is absent.
type Answer struct {
	Kind    AnswerKind
	Int     int64
	Float   float64
	Record  Record
	Records []Record
}

// IntAnswer returns an integer answer.
func IntAnswer(v int64) Answer { return Answer{Kind: AnswerInt, Int: v} }

// FloatAnswer returns a floating-point answer.
func FloatAnswer(v float64) Answer { return Answer{Kind: AnswerFloat, Float: v} }

// RecordAnswer returns a single-record answer.
func RecordAnswer(r Record) Answer { return Answer{Kind: AnswerRecord, Record: r} }

// RecordsAnswer returns a record-list answer.
func RecordsAnswer(rs []Record) Answer { return Answer{Kind: AnswerRecords, Records: rs} }

// NoAnswer returns an explicit absent answer.
func NoAnswer() Answer { return Answer{Kind: AnswerAbsent} }

// Present reports whether the answer carries a value. An integer zero
// or empty record still counts as present; only the absent kind does
// not.
func (a Answer) Present() bool {
	switch a.Kind {
	case AnswerInt, AnswerFloat, AnswerRecord, AnswerRecords:
		return true
	}
	return false
}

// MarshalJSON encodes the answer as null, a bare number, an object
// with fields in hint order, or an array of such objects.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerInt:
		return []byte(strconv.FormatInt(a.Int, 10)), nil
	case AnswerFloat:
		return []byte(strconv.FormatFloat(a.Float, 'f', -1, 64)), nil
	case AnswerRecord:
		return a.Record.MarshalJSON()
	case AnswerRecords:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, r := range a.Records {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := r.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return []byte("null"), nil
}

// ResultRecord is one line of batch output.
type ResultRecord struct {
	ID          string   `json:"id"`
	FinalAnswer Answer   `json:"final_answer"`
	SQL         string   `json:"sql"`
	Confidence  float64  `json:"confidence"`
	Explanation string   `json:"explanation"`
	Citations   []string `json:"citations"`
}
