package value

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	dateTimeOffsetLayout = "2006-01-02T15:04:05.999999999Z07:00"
	dateTimeLocalLayout  = "2006-01-02T15:04:05.999999999"
	timeOffsetLayout     = "15:04:05.999999999Z07:00"
	timeLocalLayout      = "15:04:05.999999999"
	dateOffsetLayout     = "2006-01-02Z07:00"
	dateLocalLayout      = "2006-01-02"
)

// instant is the shared representation of the three temporal datatypes: a
// point in time plus whether the lexical form carried an explicit timezone
// offset. Values without an offset are interpreted as UTC; the flag is kept
// so serialisation round-trips.
type instant struct {
	t         time.Time
	hasOffset bool
}

func parseInstant(lexical, offsetLayout, localLayout string) (instant, error) {
	if t, err := time.Parse(offsetLayout, lexical); err == nil {
		return instant{t: t, hasOffset: true}, nil
	}

	t, err := time.ParseInLocation(localLayout, lexical, time.UTC)
	if err != nil {
		return instant{}, err
	}
	return instant{t: t}, nil
}

func (i instant) lexical(offsetLayout, localLayout string) string {
	if i.hasOffset {
		return i.t.Format(offsetLayout)
	}
	return i.t.Format(localLayout)
}

// DateTime is an xs:dateTime value. The wall clock and offset are retained
// for round-trip serialisation; equality and ordering use the instant.
type DateTime struct {
	instant
}

// NewDateTime builds a DateTime carrying an explicit offset from t.
func NewDateTime(t time.Time) DateTime {
	return DateTime{instant{t: t, hasOffset: true}}
}

func parseDateTime(lexical string) (AttributeValue, error) {
	i, err := parseInstant(lexical, dateTimeOffsetLayout, dateTimeLocalLayout)
	if err != nil {
		return nil, fmt.Errorf("not a dateTime")
	}
	return DateTime{i}, nil
}

func (d DateTime) Datatype() string { return TypeDateTime }
func (d DateTime) Type() Type       { return Type{Datatype: TypeDateTime} }
func (d DateTime) Lexical() string {
	return d.lexical(dateTimeOffsetLayout, dateTimeLocalLayout)
}

// Time returns the instant the value denotes.
func (d DateTime) Time() time.Time { return d.t }

func (d DateTime) Equal(other AttributeValue) bool {
	o, ok := other.(DateTime)
	return ok && o.t.Equal(d.t)
}

func (d DateTime) Compare(other AttributeValue) (int, error) {
	o, ok := other.(DateTime)
	if !ok {
		return 0, fmt.Errorf("cannot compare %s with dateTime", other.Datatype())
	}
	return d.t.Compare(o.t), nil
}

// AddDayTime returns the dateTime shifted by the given duration.
func (d DateTime) AddDayTime(dur DayTimeDuration) DateTime {
	return DateTime{instant{t: d.t.Add(time.Duration(dur)), hasOffset: d.hasOffset}}
}

// AddYearMonth returns the dateTime shifted by the given number of months.
func (d DateTime) AddYearMonth(dur YearMonthDuration) DateTime {
	return DateTime{instant{t: d.t.AddDate(0, int(dur), 0), hasOffset: d.hasOffset}}
}

// Date is an xs:date value.
type Date struct {
	instant
}

// NewDate builds a Date carrying an explicit offset from the calendar day
// of t.
func NewDate(t time.Time) Date {
	y, m, day := t.Date()
	return Date{instant{t: time.Date(y, m, day, 0, 0, 0, 0, t.Location()), hasOffset: true}}
}

func parseDate(lexical string) (AttributeValue, error) {
	i, err := parseInstant(lexical, dateOffsetLayout, dateLocalLayout)
	if err != nil {
		return nil, fmt.Errorf("not a date")
	}
	return Date{i}, nil
}

func (d Date) Datatype() string { return TypeDate }
func (d Date) Type() Type       { return Type{Datatype: TypeDate} }
func (d Date) Lexical() string  { return d.lexical(dateOffsetLayout, dateLocalLayout) }

// Time returns the instant at the start of the day the value denotes.
func (d Date) Time() time.Time { return d.t }

func (d Date) Equal(other AttributeValue) bool {
	o, ok := other.(Date)
	return ok && o.t.Equal(d.t)
}

func (d Date) Compare(other AttributeValue) (int, error) {
	o, ok := other.(Date)
	if !ok {
		return 0, fmt.Errorf("cannot compare %s with date", other.Datatype())
	}
	return d.t.Compare(o.t), nil
}

// AddYearMonth returns the date shifted by the given number of months.
func (d Date) AddYearMonth(dur YearMonthDuration) Date {
	return Date{instant{t: d.t.AddDate(0, int(dur), 0), hasOffset: d.hasOffset}}
}

// Time is an xs:time value, anchored on a reference day so instants can be
// compared.
type Time struct {
	instant
}

// NewTime builds a Time carrying an explicit offset from the wall clock of t.
func NewTime(t time.Time) Time {
	h, m, s := t.Clock()
	return Time{instant{
		t:         time.Date(0, time.January, 1, h, m, s, t.Nanosecond(), t.Location()),
		hasOffset: true,
	}}
}

func parseTime(lexical string) (AttributeValue, error) {
	i, err := parseInstant(lexical, timeOffsetLayout, timeLocalLayout)
	if err != nil {
		return nil, fmt.Errorf("not a time")
	}
	return Time{i}, nil
}

func (t Time) Datatype() string { return TypeTime }
func (t Time) Type() Type       { return Type{Datatype: TypeTime} }
func (t Time) Lexical() string  { return t.lexical(timeOffsetLayout, timeLocalLayout) }

func (t Time) Equal(other AttributeValue) bool {
	o, ok := other.(Time)
	return ok && o.t.Equal(t.t)
}

func (t Time) Compare(other AttributeValue) (int, error) {
	o, ok := other.(Time)
	if !ok {
		return 0, fmt.Errorf("cannot compare %s with time", other.Datatype())
	}
	return t.t.Compare(o.t), nil
}

var dayTimeDurationPattern = regexp.MustCompile(
	`^(-)?P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// DayTimeDuration is an xs:dayTimeDuration value.
type DayTimeDuration time.Duration

func parseDayTimeDuration(lexical string) (AttributeValue, error) {
	m := dayTimeDurationPattern.FindStringSubmatch(lexical)
	if m == nil || (m[2] == "" && m[3] == "" && m[4] == "" && m[5] == "") {
		return nil, fmt.Errorf("not a dayTimeDuration")
	}

	var total time.Duration
	if m[2] != "" {
		days, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return nil, err
		}
		total += time.Duration(days) * 24 * time.Hour
	}
	if m[3] != "" {
		hours, err := strconv.ParseInt(m[3], 10, 64)
		if err != nil {
			return nil, err
		}
		total += time.Duration(hours) * time.Hour
	}
	if m[4] != "" {
		minutes, err := strconv.ParseInt(m[4], 10, 64)
		if err != nil {
			return nil, err
		}
		total += time.Duration(minutes) * time.Minute
	}
	if m[5] != "" {
		seconds, err := strconv.ParseFloat(m[5], 64)
		if err != nil {
			return nil, err
		}
		total += time.Duration(seconds * float64(time.Second))
	}

	if m[1] == "-" {
		total = -total
	}
	return DayTimeDuration(total), nil
}

func (d DayTimeDuration) Datatype() string { return TypeDayTimeDuration }
func (d DayTimeDuration) Type() Type       { return Type{Datatype: TypeDayTimeDuration} }

// Duration returns the value as a time.Duration.
func (d DayTimeDuration) Duration() time.Duration { return time.Duration(d) }

func (d DayTimeDuration) Lexical() string {
	rest := time.Duration(d)
	var sb strings.Builder
	if rest < 0 {
		sb.WriteByte('-')
		rest = -rest
	}
	sb.WriteByte('P')

	days := rest / (24 * time.Hour)
	rest -= days * 24 * time.Hour
	if days > 0 {
		fmt.Fprintf(&sb, "%dD", days)
	}

	if rest == 0 {
		if days == 0 {
			sb.WriteString("T0S")
		}
		return sb.String()
	}

	sb.WriteByte('T')
	hours := rest / time.Hour
	rest -= hours * time.Hour
	if hours > 0 {
		fmt.Fprintf(&sb, "%dH", hours)
	}
	minutes := rest / time.Minute
	rest -= minutes * time.Minute
	if minutes > 0 {
		fmt.Fprintf(&sb, "%dM", minutes)
	}
	if rest > 0 {
		seconds := strconv.FormatFloat(rest.Seconds(), 'f', -1, 64)
		fmt.Fprintf(&sb, "%sS", seconds)
	}
	return sb.String()
}

func (d DayTimeDuration) Equal(other AttributeValue) bool {
	o, ok := other.(DayTimeDuration)
	return ok && o == d
}

var yearMonthDurationPattern = regexp.MustCompile(`^(-)?P(?:(\d+)Y)?(?:(\d+)M)?$`)

// YearMonthDuration is an xs:yearMonthDuration value, counted in months.
type YearMonthDuration int64

func parseYearMonthDuration(lexical string) (AttributeValue, error) {
	m := yearMonthDurationPattern.FindStringSubmatch(lexical)
	if m == nil || (m[2] == "" && m[3] == "") {
		return nil, fmt.Errorf("not a yearMonthDuration")
	}

	var months int64
	if m[2] != "" {
		years, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return nil, err
		}
		months += years * 12
	}
	if m[3] != "" {
		mm, err := strconv.ParseInt(m[3], 10, 64)
		if err != nil {
			return nil, err
		}
		months += mm
	}

	if m[1] == "-" {
		months = -months
	}
	return YearMonthDuration(months), nil
}

func (d YearMonthDuration) Datatype() string { return TypeYearMonthDuration }
func (d YearMonthDuration) Type() Type       { return Type{Datatype: TypeYearMonthDuration} }

// Months returns the signed number of months the duration denotes.
func (d YearMonthDuration) Months() int64 { return int64(d) }

func (d YearMonthDuration) Lexical() string {
	months := int64(d)
	var sb strings.Builder
	if months < 0 {
		sb.WriteByte('-')
		months = -months
	}
	sb.WriteByte('P')

	years := months / 12
	months -= years * 12
	if years > 0 {
		fmt.Fprintf(&sb, "%dY", years)
	}
	if months > 0 || years == 0 {
		fmt.Fprintf(&sb, "%dM", months)
	}
	return sb.String()
}

func (d YearMonthDuration) Equal(other AttributeValue) bool {
	o, ok := other.(YearMonthDuration)
	return ok && o == d
}
