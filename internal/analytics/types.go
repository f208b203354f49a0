package analytics

import "fmt"

// ParamError marks a caller-supplied enum or parameter value the engine does
// not recognize. Handlers translate it to a client error naming the value.
type ParamError struct {
	Param string
	Value string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s value: %q", e.Param, e.Value)
}

// Filters is the common filter vocabulary shared by every aggregation query.
// Zero values mean "no filter"; active filters are AND-composed.
type Filters struct {
	TimeRange                string // "", "all", "24h", "7d", "14d", "30d", "90d"
	League                   string // exact match
	ExcludeSystemAccounts    bool
	ExcludeCommunityAccounts bool
}

// UserCount is one row of the top-users chart.
type UserCount struct {
	Account string `json:"account"`
	Count   int64  `json:"count"`
}

// UserRatio is the add/remove balance for one account. Ratio may be negative.
type UserRatio struct {
	Account   string `json:"account"`
	Additions int64  `json:"additions"`
	Removals  int64  `json:"removals"`
	Ratio     int64  `json:"ratio"`
}

// ActivityBucket is one time segment of the activity chart. Buckets with no
// events are omitted, so a series may be sparse.
type ActivityBucket struct {
	Segment  string `json:"segment"`
	Added    int64  `json:"added"`
	Removed  int64  `json:"removed"`
	Modified int64  `json:"modified"`
}

// CurrencyTotals is the per-item breakdown inside the currency category.
type CurrencyTotals struct {
	Added   int64 `json:"added"`
	Removed int64 `json:"removed"`
	Balance int64 `json:"balance"`
}

// CategoryTotals aggregates a non-currency category.
type CategoryTotals struct {
	Added   int64 `json:"added"`
	Removed int64 `json:"removed"`
}

// AccountStats summarizes one account's activity in one league.
type AccountStats struct {
	TotalAdded   int64                     `json:"total_added"`
	TotalRemoved int64                     `json:"total_removed"`
	Currency     map[string]CurrencyTotals `json:"currency"`
	Gems         CategoryTotals            `json:"gems"`
	Other        CategoryTotals            `json:"other"`
}

// TableFilters are the search-page filters. Account, Stash and Item are
// case-insensitive substring matches; Action and League are exact.
type TableFilters struct {
	Account string
	Stash   string
	Item    string
	Action  string
	League  string
}

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

type TablePage struct {
	Data       []TableRow `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// TableRow is the listing shape for one stored event.
type TableRow struct {
	Date      string `json:"date"`
	OpID      int64  `json:"op_id" gorm:"column:op_id"`
	League    string `json:"league"`
	Account   string `json:"account"`
	Action    string `json:"action"`
	Stash     string `json:"stash"`
	Item      string `json:"item"`
	ItemCount int    `json:"item_count"`
}
