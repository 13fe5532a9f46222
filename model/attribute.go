// model/attribute.go
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type AttributeKind uint8

const (
	KindString AttributeKind = iota + 1
	KindNumber
	KindBoolean
	KindTimestamp
)

func (k AttributeKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindTimestamp:
		return "timestamp"
	}
	return "unknown"
}

// AttributeValue is a scalar attribute; only the field selected by Kind is meaningful.
type AttributeValue struct {
	Kind AttributeKind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
}

func StringValue(s string) AttributeValue  { return AttributeValue{Kind: KindString, Str: s} }
func NumberValue(n float64) AttributeValue { return AttributeValue{Kind: KindNumber, Num: n} }
func BoolValue(b bool) AttributeValue      { return AttributeValue{Kind: KindBoolean, Bool: b} }
func TimestampValue(t time.Time) AttributeValue {
	return AttributeValue{Kind: KindTimestamp, Time: t.UTC()}
}

// ParseAttribute converts a decoded JSON or native Go scalar into an
// AttributeValue. Strings in RFC 3339 form become timestamps.
func ParseAttribute(v any) (AttributeValue, error) {
	switch val := v.(type) {
	case AttributeValue:
		return val, nil
	case string:
		if ts, ok := parseTimestamp(val); ok {
			return TimestampValue(ts), nil
		}
		return StringValue(val), nil
	case bool:
		return BoolValue(val), nil
	case float64:
		return NumberValue(val), nil
	case float32:
		return NumberValue(float64(val)), nil
	case int:
		return NumberValue(float64(val)), nil
	case int8:
		return NumberValue(float64(val)), nil
	case int16:
		return NumberValue(float64(val)), nil
	case int32:
		return NumberValue(float64(val)), nil
	case int64:
		return NumberValue(float64(val)), nil
	case uint:
		return NumberValue(float64(val)), nil
	case uint8:
		return NumberValue(float64(val)), nil
	case uint16:
		return NumberValue(float64(val)), nil
	case uint32:
		return NumberValue(float64(val)), nil
	case uint64:
		return NumberValue(float64(val)), nil
	case json.Number:
		n, err := val.Float64()
		if err != nil {
			return AttributeValue{}, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return NumberValue(n), nil
	case time.Time:
		return TimestampValue(val), nil
	case *time.Time:
		if val == nil {
			return AttributeValue{}, fmt.Errorf("nil timestamp")
		}
		return TimestampValue(*val), nil
	case nil:
		return AttributeValue{}, fmt.Errorf("null attribute value")
	}
	return AttributeValue{}, fmt.Errorf("unsupported attribute type %T", v)
}

func parseTimestamp(s string) (time.Time, bool) {
	// cheap reject before attempting a parse
	if len(s) < len("2006-01-02T15:04:05Z") || s[4] != '-' || !strings.ContainsAny(s, "Tt") {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// As converts the value to kind when a lossless reading exists. A string
// holding a number reads as a number; a number never reads as a string.
func (a AttributeValue) As(kind AttributeKind) (AttributeValue, bool) {
	if a.Kind == kind {
		return a, true
	}
	if a.Kind != KindString {
		return AttributeValue{}, false
	}
	switch kind {
	case KindNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(a.Str), 64)
		if err != nil {
			return AttributeValue{}, false
		}
		return NumberValue(n), true
	case KindBoolean:
		b, err := strconv.ParseBool(a.Str)
		if err != nil {
			return AttributeValue{}, false
		}
		return BoolValue(b), true
	case KindTimestamp:
		ts, ok := parseTimestamp(a.Str)
		if !ok {
			return AttributeValue{}, false
		}
		return TimestampValue(ts), true
	}
	return AttributeValue{}, false
}

// Equal is strict on kind; callers coerce first with As.
func (a AttributeValue) Equal(b AttributeValue) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindString:
		return a.Str == b.Str
	case KindNumber:
		return a.Num == b.Num
	case KindBoolean:
		return a.Bool == b.Bool
	case KindTimestamp:
		return a.Time.Equal(b.Time)
	}
	return false
}

// Compare orders two values of the same orderable kind (number, timestamp, string).
func (a AttributeValue) Compare(b AttributeValue) (int, error) {
	if a.Kind != b.Kind {
		return 0, fmt.Errorf("cannot order %s against %s", a.Kind, b.Kind)
	}
	switch a.Kind {
	case KindNumber:
		switch {
		case a.Num < b.Num:
			return -1, nil
		case a.Num > b.Num:
			return 1, nil
		}
		return 0, nil
	case KindTimestamp:
		return a.Time.Compare(b.Time), nil
	case KindString:
		return strings.Compare(a.Str, b.Str), nil
	}
	return 0, fmt.Errorf("%s values are not ordered", a.Kind)
}

func (a AttributeValue) String() string {
	switch a.Kind {
	case KindString:
		return a.Str
	case KindNumber:
		return strconv.FormatFloat(a.Num, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(a.Bool)
	case KindTimestamp:
		return a.Time.Format(time.RFC3339Nano)
	}
	return ""
}

func (a AttributeValue) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case KindNumber:
		return json.Marshal(a.Num)
	case KindBoolean:
		return json.Marshal(a.Bool)
	case KindTimestamp, KindString:
		return json.Marshal(a.String())
	}
	return []byte("null"), nil
}
