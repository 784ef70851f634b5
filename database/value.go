package database

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Value is one column of one row. A NULL column is an absent Value, never the
// text "NULL".
type Value struct {
	raw     any
	present bool
}

// Absent is the NULL marker.
var Absent = Value{}

func NewValue(raw any) Value {
	if raw == nil {
		return Absent
	}
	// drivers may reuse the backing array of []byte after Next
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	return Value{raw: raw, present: true}
}

func (v Value) IsNull() bool {
	return !v.present
}

func (v Value) Raw() any {
	return v.raw
}

// Int converts integer, float without fraction and numeric text columns.
func (v Value) Int() (int, bool) {
	if !v.present {
		return 0, false
	}
	switch x := v.raw.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case int32:
		return int(x), true
	case int16:
		return int(x), true
	case int8:
		return int(x), true
	case uint8:
		return int(x), true
	case float64:
		if x == math.Trunc(x) {
			return int(x), true
		}
	case float32:
		if float64(x) == math.Trunc(float64(x)) {
			return int(x), true
		}
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

func (v Value) Text() (string, bool) {
	if !v.present {
		return "", false
	}
	switch x := v.raw.(type) {
	case string:
		return x, true
	case time.Time:
		return x.Format(time.RFC3339), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

// TypeName is the Go type carried by the driver, or "" for NULL.
func (v Value) TypeName() string {
	if !v.present {
		return ""
	}
	return fmt.Sprintf("%T", v.raw)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.present {
		return []byte("null"), nil
	}
	return json.Marshal(v.raw)
}

// Row maps column names, as reported by the driver, to values.
type Row map[string]Value

type ResultSet struct {
	Columns []string
	Rows    []Row
}
