package attr

import (
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

type Kind int

const (
	KIND_TEXT Kind = iota
	KIND_NUMBER
	KIND_DURATION
	KIND_TIMESTAMP
)

func (k Kind) String() string {
	switch k {
	case KIND_TEXT:
		return "text"
	case KIND_NUMBER:
		return "number"
	case KIND_DURATION:
		return "duration"
	case KIND_TIMESTAMP:
		return "timestamp"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a typed attribute or text value. Raw always holds the original
// text so a value can be written back unchanged.
type Value struct {
	Kind Kind
	Raw  string
	// Number holds the numeric value for KIND_NUMBER and the signed seconds
	// for KIND_DURATION.
	Number float64
	Time   time.Time
}

func Text(raw string) Value {
	return Value{Kind: KIND_TEXT, Raw: raw}
}

func Number(raw string, v float64) Value {
	return Value{Kind: KIND_NUMBER, Raw: raw, Number: v}
}

func Duration(raw string, seconds float64) Value {
	return Value{Kind: KIND_DURATION, Raw: raw, Number: seconds}
}

func Timestamp(raw string, t time.Time) Value {
	return Value{Kind: KIND_TIMESTAMP, Raw: raw, Time: t.UTC()}
}

func (v Value) String() string {
	return v.Raw
}

func (v Value) IsText() bool {
	return v.Kind == KIND_TEXT
}

// Seconds returns the duration in seconds, false if v is not a duration.
func (v Value) Seconds() (float64, bool) {
	if v.Kind != KIND_DURATION {
		return 0, false
	}
	return v.Number, true
}

// TimeDuration converts a duration value to a time.Duration.
func (v Value) TimeDuration() (time.Duration, bool) {
	s, ok := v.Seconds()
	if !ok {
		return 0, false
	}
	return time.Duration(s * float64(time.Second)), true
}

func (v Value) Float() (float64, bool) {
	if v.Kind != KIND_NUMBER {
		return 0, false
	}
	return v.Number, true
}

func (v Value) Equal(o Value) bool {
	return v.Kind == o.Kind && v.Raw == o.Raw && v.Number == o.Number && v.Time.Equal(o.Time)
}

// Interface returns the natural Go value: string, float64 or time.Time.
func (v Value) Interface() any {
	switch v.Kind {
	case KIND_NUMBER, KIND_DURATION:
		return v.Number
	case KIND_TIMESTAMP:
		return v.Time
	default:
		return v.Raw
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KIND_NUMBER, KIND_DURATION:
		if math.IsInf(v.Number, 0) || math.IsNaN(v.Number) {
			return json.Marshal(v.Raw)
		}
		return json.Marshal(v.Number)
	case KIND_TIMESTAMP:
		return json.Marshal(v.Time.Format("2006-01-02T15:04:05.000Z07:00"))
	default:
		return json.Marshal(v.Raw)
	}
}
