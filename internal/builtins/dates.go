package builtins

import (
	"context"

	"github.com/plesql/plesql/internal/dates"
	"github.com/plesql/plesql/internal/value"
)

func (r *Registry) dateFunctions() []*Function {
	d := value.TypeDate
	fns := []*Function{
		{Name: "CURRENT_DATE", Doc: "Today at midnight UTC.", Impl: Sync(func(context.Context, []value.Value) (value.Value, error) {
			return value.NewDate(dates.StartOfDay(r.now())), nil
		})},
		{Name: "CURRENT_TIMESTAMP", Doc: "The current instant.", Impl: Sync(func(context.Context, []value.Value) (value.Value, error) {
			return value.NewDate(r.now()), nil
		})},
		{Name: "DATE_ADD", Doc: "Adds days to date.", Params: []Param{param("date", d), param("days", value.TypeInt)}, Impl: Sync(shiftDays(1))},
		{Name: "DATE_SUB", Doc: "Subtracts days from date.", Params: []Param{param("date", d), param("days", value.TypeInt)}, Impl: Sync(shiftDays(-1))},
		{Name: "EXTRACT_YEAR", Doc: "Year of date.", Params: []Param{param("date", d)}, Impl: Sync(extract(func(v value.Date) int { return v.Time().Year() }))},
		{Name: "EXTRACT_MONTH", Doc: "Month of date (1-12).", Params: []Param{param("date", d)}, Impl: Sync(extract(func(v value.Date) int { return int(v.Time().Month()) }))},
		{Name: "EXTRACT_DAY", Doc: "Day of month of date.", Params: []Param{param("date", d)}, Impl: Sync(extract(func(v value.Date) int { return v.Time().Day() }))},
		{Name: "DATEDIFF", Doc: "Whole days from d2 to d1, both truncated to midnight.",
			Params: []Param{param("d1", d), param("d2", d)}, Impl: Sync(fnDateDiff)},
	}
	for _, f := range fns {
		f.Category = "date"
		f.Strict = true
	}
	return fns
}

func shiftDays(sign int) SyncImpl {
	return func(_ context.Context, args []value.Value) (value.Value, error) {
		d := args[0].(value.Date)
		days := int(args[1].(value.Int))
		return value.NewDate(dates.AddDays(d.Time(), sign*days)), nil
	}
}

func extract(part func(value.Date) int) SyncImpl {
	return func(_ context.Context, args []value.Value) (value.Value, error) {
		return value.Int(part(args[0].(value.Date))), nil
	}
}

func fnDateDiff(_ context.Context, args []value.Value) (value.Value, error) {
	a := args[0].(value.Date)
	b := args[1].(value.Date)
	return value.Int(dates.DaysBetween(a.Time(), b.Time())), nil
}
