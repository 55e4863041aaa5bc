package report

import "github.com/coopco/salesbot/internal/salesapi"

// Type names the data window of a sales report.
type Type string

const (
	TypeDaily     Type = "daily"
	TypeWeekly    Type = "weekly"
	TypeMonthly   Type = "monthly"
	TypeQuarterly Type = "quarterly"
)

// TypeFromString parses a report type token; ok is false for anything else.
func TypeFromString(s string) (Type, bool) {
	switch Type(s) {
	case TypeDaily, TypeWeekly, TypeMonthly, TypeQuarterly:
		return Type(s), true
	default:
		return "", false
	}
}

// Filter returns the API query filter selecting this type's data window.
func (t Type) Filter() salesapi.Filter {
	switch t {
	case TypeDaily:
		return salesapi.FilterToday
	case TypeWeekly:
		return salesapi.FilterWeek
	case TypeMonthly:
		return salesapi.FilterMonth
	case TypeQuarterly:
		return salesapi.FilterQuarter
	default:
		return salesapi.FilterNone
	}
}
