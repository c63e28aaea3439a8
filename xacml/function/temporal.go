package function

import (
	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

func init() {
	dtT := single(value.TypeDateTime)
	dT := single(value.TypeDate)
	dtdT := single(value.TypeDayTimeDuration)
	ymdT := single(value.TypeYearMonthDuration)

	register(
		newFixed(xacml30+"dateTime-add-dayTimeDuration", dtT, dateTimeDayTime(1), dtT, dtdT),
		newFixed(xacml30+"dateTime-subtract-dayTimeDuration", dtT, dateTimeDayTime(-1), dtT, dtdT),
		newFixed(xacml30+"dateTime-add-yearMonthDuration", dtT, dateTimeYearMonth(1), dtT, ymdT),
		newFixed(xacml30+"dateTime-subtract-yearMonthDuration", dtT, dateTimeYearMonth(-1), dtT, ymdT),
		newFixed(xacml30+"date-add-yearMonthDuration", dT, dateYearMonth(1), dT, ymdT),
		newFixed(xacml30+"date-subtract-yearMonthDuration", dT, dateYearMonth(-1), dT, ymdT),
	)
}

func dateTimeDayTime(sign int64) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		dt, ok := args[0].(value.DateTime)
		if !ok {
			return nil, status.NewProcessingError("expected dateTime, got %s", args[0].Type())
		}
		dur, ok := args[1].(value.DayTimeDuration)
		if !ok {
			return nil, status.NewProcessingError("expected dayTimeDuration, got %s", args[1].Type())
		}
		return dt.AddDayTime(value.DayTimeDuration(sign) * dur), nil
	}
}

func dateTimeYearMonth(sign int64) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		dt, ok := args[0].(value.DateTime)
		if !ok {
			return nil, status.NewProcessingError("expected dateTime, got %s", args[0].Type())
		}
		dur, ok := args[1].(value.YearMonthDuration)
		if !ok {
			return nil, status.NewProcessingError("expected yearMonthDuration, got %s", args[1].Type())
		}
		return dt.AddYearMonth(value.YearMonthDuration(sign) * dur), nil
	}
}

func dateYearMonth(sign int64) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		d, ok := args[0].(value.Date)
		if !ok {
			return nil, status.NewProcessingError("expected date, got %s", args[0].Type())
		}
		dur, ok := args[1].(value.YearMonthDuration)
		if !ok {
			return nil, status.NewProcessingError("expected yearMonthDuration, got %s", args[1].Type())
		}
		return d.AddYearMonth(value.YearMonthDuration(sign) * dur), nil
	}
}
