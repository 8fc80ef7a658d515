package attr

import (
	stderrors "errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	SECONDS_IN_YEAR  = 365 * 24 * 60 * 60
	SECONDS_IN_MONTH = 30 * 24 * 60 * 60
	SECONDS_IN_DAY   = 24 * 60 * 60
	SECONDS_IN_HOUR  = 60 * 60
	SECONDS_IN_MIN   = 60
	MINUTES_IN_HOUR  = 60
)

var (
	durationRegex = regexp.MustCompile(`^(-)?P(([\d.]*)Y)?(([\d.]*)M)?(([\d.]*)D)?T?(([\d.]*)H)?(([\d.]*)M)?(([\d.]*)S)?`)
	datetimeRegex = regexp.MustCompile(`^([0-9]{4})-([0-9]{2})-([0-9]{2})T([0-9]{2}):([0-9]{2})(?::([0-9]*)(\.[0-9]*)?)?(?:([+-])([0-9]{2}):?([0-9]{2}))?`)
	numericRegex  = regexp.MustCompile(`^[-+]?[0-9]+[.]?[0-9]*([eE][-+]?[0-9]+)?$`)
	decimalPrefix = regexp.MustCompile(`^[0-9]*\.?[0-9]*`)
)

// DurationAttributes are the only attributes whose values may be read as
// ISO-8601 durations.
var DurationAttributes = []string{
	"minBufferTime", "mediaPresentationDuration",
	"minimumUpdatePeriod", "timeShiftBufferDepth", "maxSegmentDuration",
	"maxSubsegmentDuration", "suggestedPresentationDelay", "start",
	"starttime", "duration",
}

// Matcher recognizes a raw value and converts it. Convert may refuse a value
// Test accepted (for example a numeric overflow), in which case the next
// matcher is tried.
type Matcher struct {
	Type    Kind
	Test    func(name string, raw string) bool
	Convert func(raw string) (Value, bool)
}

// Registry is an ordered, immutable list of matchers. The first matcher whose
// Test and Convert both succeed decides the value; otherwise the value stays
// text.
type Registry struct {
	matchers []Matcher
}

func NewRegistry(matchers ...Matcher) *Registry {
	ms := make([]Matcher, len(matchers))
	copy(ms, matchers)
	return &Registry{matchers: ms}
}

var defaultRegistry = NewRegistry(DurationMatcher(DurationAttributes...), DatetimeMatcher(), NumericMatcher())

// DefaultRegistry returns the shared duration, datetime, numeric registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

func (r *Registry) Matchers() []Matcher {
	ms := make([]Matcher, len(r.matchers))
	copy(ms, r.matchers)
	return ms
}

func (r *Registry) Classify(name string, raw string) Value {
	for _, m := range r.matchers {
		if !m.Test(name, raw) {
			continue
		}
		if v, ok := m.Convert(raw); ok {
			return v
		}
	}
	return Text(raw)
}

func DurationMatcher(attributes ...string) Matcher {
	allowed := make(map[string]struct{}, len(attributes))
	for _, a := range attributes {
		allowed[a] = struct{}{}
	}
	return Matcher{
		Type: KIND_DURATION,
		Test: func(name string, raw string) bool {
			if _, ok := allowed[name]; !ok {
				return false
			}
			return durationRegex.MatchString(raw)
		},
		Convert: func(raw string) (Value, bool) {
			seconds, ok := ParseDuration(raw)
			if !ok {
				return Value{}, false
			}
			return Duration(raw, seconds), true
		},
	}
}

func DatetimeMatcher() Matcher {
	return Matcher{
		Type: KIND_TIMESTAMP,
		Test: func(_ string, raw string) bool {
			return datetimeRegex.MatchString(raw)
		},
		Convert: func(raw string) (Value, bool) {
			t, ok := ParseDatetime(raw)
			if !ok {
				return Value{}, false
			}
			return Timestamp(raw, t), true
		},
	}
}

func NumericMatcher() Matcher {
	return Matcher{
		Type: KIND_NUMBER,
		Test: func(_ string, raw string) bool {
			return numericRegex.MatchString(raw)
		},
		Convert: func(raw string) (Value, bool) {
			f, err := strconv.ParseFloat(raw, 64)
			// out of range values come back as ±Inf, which is still a number
			if err != nil && !stderrors.Is(err, strconv.ErrRange) {
				return Value{}, false
			}
			return Number(raw, f), true
		},
	}
}

// ParseDuration converts a P[n]Y[n]M[n]DT[n]H[n]M[n]S string to seconds.
// Months count as 30 days and years as 365 days.
func ParseDuration(raw string) (float64, bool) {
	m := durationRegex.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	result := decimal(m[3])*SECONDS_IN_YEAR +
		decimal(m[5])*SECONDS_IN_MONTH +
		decimal(m[7])*SECONDS_IN_DAY +
		decimal(m[9])*SECONDS_IN_HOUR +
		decimal(m[11])*SECONDS_IN_MIN +
		decimal(m[13])
	if m[1] != "" {
		result = -result
	}
	return result, true
}

// ParseDatetime reads the literal fields as UTC and then applies the
// timezone offset, if any, to get an absolute instant.
func ParseDatetime(raw string) (time.Time, bool) {
	m := datetimeRegex.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	second := 0
	if m[6] != "" {
		second, _ = strconv.Atoi(m[6])
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, millis(m[7])*int(time.Millisecond), time.UTC)
	if m[9] != "" && m[10] != "" {
		oh, _ := strconv.Atoi(m[9])
		om, _ := strconv.Atoi(m[10])
		offset := time.Duration(oh*MINUTES_IN_HOUR+om) * time.Minute
		if m[8] == "+" {
			t = t.Add(-offset)
		} else {
			t = t.Add(offset)
		}
	}
	return t, true
}

// decimal reads the longest leading decimal number of s, 0 when there is none.
func decimal(s string) float64 {
	p := decimalPrefix.FindString(s)
	if p == "" || p == "." {
		return 0
	}
	f, err := strconv.ParseFloat(p, 64)
	if err != nil {
		return 0
	}
	return f
}

// millis truncates a ".fff..." fraction to whole milliseconds.
func millis(frac string) int {
	digits := strings.TrimPrefix(frac, ".")
	if len(digits) > 3 {
		digits = digits[:3]
	}
	if digits == "" {
		return 0
	}
	for len(digits) < 3 {
		digits += "0"
	}
	ms, _ := strconv.Atoi(digits)
	return ms
}
