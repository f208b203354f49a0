package analytics

import "fmt"

// Both drivers store dates as sortable "YYYY-MM-DD HH:MM:SS" text, but the
// truncation and relative-time functions differ, so the engine asks for the
// right fragment by dialect name. Every fragment below is assembled from
// compile-time constants only; caller values never reach the SQL text.

var timeRangeDays = map[string]int{
	"24h": 1,
	"7d":  7,
	"14d": 14,
	"30d": 30,
	"90d": 90,
}

// sinceClause returns the lower-bound predicate for a time range, or a
// ParamError when the range is not part of the vocabulary.
func sinceClause(dialect, timeRange string) (string, error) {
	days, ok := timeRangeDays[timeRange]
	if !ok {
		return "", &ParamError{Param: "timeRange", Value: timeRange}
	}
	if dialect == "sqlite" {
		return fmt.Sprintf("date > datetime('now', '-%d days')", days), nil
	}
	return fmt.Sprintf("date > NOW() - INTERVAL %d DAY", days), nil
}

// bucketExpr returns the segment-truncation expression for a time slice.
func bucketExpr(dialect, timeSlice string) (string, error) {
	var format string
	switch timeSlice {
	case "hour":
		format = "%Y-%m-%d %H:00"
	case "day":
		format = "%Y-%m-%d"
	case "week":
		if dialect == "sqlite" {
			format = "%Y-%W"
		} else {
			format = "%x-%v"
		}
	case "month":
		format = "%Y-%m"
	default:
		return "", &ParamError{Param: "timeSlice", Value: timeSlice}
	}
	if dialect == "sqlite" {
		return fmt.Sprintf("strftime('%s', date)", format), nil
	}
	return fmt.Sprintf("DATE_FORMAT(date, '%s')", format), nil
}
