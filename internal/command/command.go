// Package command parses incoming chat text into a closed set of command
// variants so the router can dispatch exhaustively.
package command

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/coopco/salesbot/internal/report"
	"github.com/coopco/salesbot/internal/salesapi"
)

// Kind tags a parsed command variant.
type Kind int

const (
	KindUnknown Kind = iota
	KindStart
	KindCommandList
	KindLogin
	KindLogout
	KindGetReport
	KindScheduleReport
	KindInvalidSchedule
	KindShowScheduled
	KindDeleteScheduled
	KindInvalidDelete
)

var timeOfDayRe = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Command is one parsed chat command. Only the fields relevant to its Kind
// are populated.
type Command struct {
	Kind       Kind
	Filter     salesapi.Filter // KindGetReport; FilterNone = unfiltered report
	ReportType report.Type     // KindScheduleReport
	TimeOfDay  string          // KindScheduleReport, "HH:MM"
	Position   int             // KindDeleteScheduled, 1-based
}

// Parse maps trimmed, lower-cased message text to a command variant. Text
// that matches no command yields KindUnknown.
func Parse(text string) Command {
	t := strings.ToLower(strings.TrimSpace(text))

	switch t {
	case "/start":
		return Command{Kind: KindStart}
	case "/command":
		return Command{Kind: KindCommandList}
	case "login":
		return Command{Kind: KindLogin}
	case "logout":
		return Command{Kind: KindLogout}
	case "get sales report":
		return Command{Kind: KindGetReport, Filter: salesapi.FilterNone}
	case "get daily sales report":
		return Command{Kind: KindGetReport, Filter: salesapi.FilterToday}
	case "get weekly sales report":
		return Command{Kind: KindGetReport, Filter: salesapi.FilterWeek}
	case "get monthly sales report":
		return Command{Kind: KindGetReport, Filter: salesapi.FilterMonth}
	case "get quarterly sales report":
		return Command{Kind: KindGetReport, Filter: salesapi.FilterQuarter}
	case "show scheduled reports":
		return Command{Kind: KindShowScheduled}
	}

	if strings.HasPrefix(t, "schedule report") {
		return parseSchedule(t)
	}
	if strings.HasPrefix(t, "delete scheduled report") {
		return parseDelete(t)
	}
	return Command{Kind: KindUnknown}
}

// parseSchedule handles "schedule report {type} {HH:MM}".
func parseSchedule(t string) Command {
	parts := strings.Fields(t)
	if len(parts) != 4 {
		return Command{Kind: KindInvalidSchedule}
	}
	rt, ok := report.TypeFromString(parts[2])
	if !ok || !timeOfDayRe.MatchString(parts[3]) {
		return Command{Kind: KindInvalidSchedule}
	}
	return Command{Kind: KindScheduleReport, ReportType: rt, TimeOfDay: parts[3]}
}

// parseDelete handles "delete scheduled report {n}".
func parseDelete(t string) Command {
	parts := strings.Fields(t)
	if len(parts) != 4 {
		return Command{Kind: KindInvalidDelete}
	}
	n, err := strconv.Atoi(parts[3])
	if err != nil {
		return Command{Kind: KindInvalidDelete}
	}
	return Command{Kind: KindDeleteScheduled, Position: n}
}
