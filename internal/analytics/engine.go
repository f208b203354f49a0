package analytics

import (
	"fmt"
	"strings"

	"stash-tracker/internal/config"
	"stash-tracker/internal/models"

	"gorm.io/gorm"
)

const topUsersLimit = 10

// Engine runs the aggregation queries behind the dashboard charts. It holds
// the database handle and an immutable snapshot of the analytics rule lists;
// nothing here mutates after construction, so concurrent requests share one
// Engine freely.
type Engine struct {
	db                *gorm.DB
	systemAccounts    []string
	communityAccounts []string
	classifier        *Classifier
}

func NewEngine(db *gorm.DB, cfg *config.Config) *Engine {
	return &Engine{
		db:                db,
		systemAccounts:    cfg.SystemAccounts,
		communityAccounts: cfg.CommunityAccounts,
		classifier:        NewClassifier(cfg.CurrencyItems, cfg.GemItems, cfg.CurrencyTabs),
	}
}

func (e *Engine) dialect() string {
	return e.db.Dialector.Name()
}

// applyFilters appends the common filter vocabulary to a query. Each active
// filter becomes one parameterized predicate; inactive filters add nothing,
// so composition never depends on which combination is present.
func (e *Engine) applyFilters(tx *gorm.DB, f Filters) (*gorm.DB, error) {
	if f.TimeRange != "" && f.TimeRange != "all" {
		cond, err := sinceClause(e.dialect(), f.TimeRange)
		if err != nil {
			return nil, err
		}
		tx = tx.Where(cond)
	}
	if f.ExcludeSystemAccounts && len(e.systemAccounts) > 0 {
		tx = tx.Where("account NOT IN ?", e.systemAccounts)
	}
	if f.ExcludeCommunityAccounts && len(e.communityAccounts) > 0 {
		tx = tx.Where("account NOT IN ?", e.communityAccounts)
	}
	if f.League != "" {
		tx = tx.Where("league = ?", f.League)
	}
	return tx, nil
}

// TopUsers returns the ten accounts with the most events of one action.
// Ties break on account name ascending so the chart is stable across runs.
func (e *Engine) TopUsers(action string, f Filters) ([]UserCount, error) {
	if !models.ValidAction(action) {
		return nil, &ParamError{Param: "action", Value: action}
	}
	tx, err := e.applyFilters(e.db.Model(&models.StashEvent{}).Where("action = ?", action), f)
	if err != nil {
		return nil, err
	}

	results := []UserCount{}
	err = tx.Select("account, COUNT(*) AS count").
		Group("account").
		Order("count DESC, account ASC").
		Limit(topUsersLimit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("top users query failed: %w", err)
	}
	return results, nil
}

// UserRatios returns per-account added/removed item sums and their
// difference. Accounts that neither added nor removed anything are dropped.
func (e *Engine) UserRatios(f Filters, limit int, order string) ([]UserRatio, error) {
	switch order {
	case "":
		order = "desc"
	case "asc", "desc":
	default:
		return nil, &ParamError{Param: "order", Value: order}
	}
	if limit <= 0 {
		limit = 10
	}

	tx, err := e.applyFilters(e.db.Model(&models.StashEvent{}), f)
	if err != nil {
		return nil, err
	}

	results := []UserRatio{}
	err = tx.Select(
		"account, "+
			"SUM(CASE WHEN action = 'added' THEN item_count ELSE 0 END) AS additions, "+
			"SUM(CASE WHEN action = 'removed' THEN item_count ELSE 0 END) AS removals, "+
			"SUM(CASE WHEN action = 'added' THEN item_count ELSE 0 END) - "+
			"SUM(CASE WHEN action = 'removed' THEN item_count ELSE 0 END) AS ratio").
		Group("account").
		Having("additions > 0 OR removals > 0").
		Order("ratio " + strings.ToUpper(order) + ", account ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("user ratios query failed: %w", err)
	}
	return results, nil
}

// ActivityByTimeSegment buckets events by hour/day/week/month and counts each
// action per bucket. Empty buckets are not zero-filled; the series is sparse
// and sorted ascending by segment key.
func (e *Engine) ActivityByTimeSegment(timeSlice string, f Filters) ([]ActivityBucket, error) {
	segment, err := bucketExpr(e.dialect(), timeSlice)
	if err != nil {
		return nil, err
	}
	tx, err := e.applyFilters(e.db.Model(&models.StashEvent{}), f)
	if err != nil {
		return nil, err
	}

	results := []ActivityBucket{}
	err = tx.Select(segment+" AS segment, "+
		"SUM(CASE WHEN action = 'added' THEN 1 ELSE 0 END) AS added, "+
		"SUM(CASE WHEN action = 'removed' THEN 1 ELSE 0 END) AS removed, "+
		"SUM(CASE WHEN action = 'modified' THEN 1 ELSE 0 END) AS modified").
		Group("segment").
		Order("segment ASC").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("activity query failed: %w", err)
	}
	return results, nil
}

type accountStatRow struct {
	Item   string
	Stash  string
	Action string
	Total  int64
}

// AccountStats partitions one account's items in one league into currency,
// gems and everything else. Currency gets a per-item breakdown with a running
// balance; the other two categories only aggregate. Returns nil when the
// account has no rows at all in that league, which is different from having
// rows but zero activity inside the requested window.
func (e *Engine) AccountStats(account, league, dateRange string) (*AccountStats, error) {
	if account == "" {
		return nil, &ParamError{Param: "account", Value: account}
	}

	tx := e.db.Model(&models.StashEvent{}).Where("account = ? AND league = ?", account, league)
	if dateRange != "" && dateRange != "all" {
		cond, err := sinceClause(e.dialect(), dateRange)
		if err != nil {
			return nil, &ParamError{Param: "dateRange", Value: dateRange}
		}
		tx = tx.Where(cond)
	}

	var rows []accountStatRow
	err := tx.Select("item, stash, action, SUM(item_count) AS total").
		Group("item, stash, action").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("account stats query failed: %w", err)
	}

	if len(rows) == 0 {
		var n int64
		err := e.db.Model(&models.StashEvent{}).
			Where("account = ? AND league = ?", account, league).
			Count(&n).Error
		if err != nil {
			return nil, fmt.Errorf("account stats query failed: %w", err)
		}
		if n == 0 {
			return nil, nil
		}
		// Known account, just nothing inside the window.
		return &AccountStats{Currency: map[string]CurrencyTotals{}}, nil
	}

	stats := &AccountStats{Currency: map[string]CurrencyTotals{}}
	for _, row := range rows {
		var added, removed int64
		switch row.Action {
		case models.ActionAdded:
			added = row.Total
		case models.ActionRemoved:
			removed = row.Total
		default:
			// Modified events track churn, not quantity moved.
			continue
		}

		switch e.classifier.Classify(row.Item, row.Stash) {
		case CategoryCurrency:
			entry := stats.Currency[row.Item]
			entry.Added += added
			entry.Removed += removed
			entry.Balance = entry.Added - entry.Removed
			stats.Currency[row.Item] = entry
		case CategoryGem:
			stats.Gems.Added += added
			stats.Gems.Removed += removed
		default:
			stats.Other.Added += added
			stats.Other.Removed += removed
		}
		stats.TotalAdded += added
		stats.TotalRemoved += removed
	}
	return stats, nil
}

// TableData serves the paginated search page. A page past the end is a valid
// request that returns no rows.
func (e *Engine) TableData(f TableFilters, page, pageSize int) (*TablePage, error) {
	if f.Action != "" && f.Action != "all" && !models.ValidAction(f.Action) {
		return nil, &ParamError{Param: "action", Value: f.Action}
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 25
	}
	if pageSize > 200 {
		pageSize = 200
	}

	var total int64
	if err := e.tableQuery(f).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("table count query failed: %w", err)
	}

	rows := []TableRow{}
	err := e.tableQuery(f).
		Select("date, op_id, league, account, action, stash, item, item_count").
		Order("date DESC, op_id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("table data query failed: %w", err)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &TablePage{
		Data: rows,
		Pagination: Pagination{
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
		},
	}, nil
}

// ExportRows returns up to limit filtered rows, newest first, for file
// export. Validation matches TableData.
func (e *Engine) ExportRows(f TableFilters, limit int) ([]TableRow, error) {
	if f.Action != "" && f.Action != "all" && !models.ValidAction(f.Action) {
		return nil, &ParamError{Param: "action", Value: f.Action}
	}
	if limit <= 0 {
		limit = 10000
	}

	rows := []TableRow{}
	err := e.tableQuery(f).
		Select("date, op_id, league, account, action, stash, item, item_count").
		Order("date DESC, op_id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("export query failed: %w", err)
	}
	return rows, nil
}

// tableQuery builds the filtered base query for the search page. Every
// fragment is parameterized; caller text never reaches the SQL string.
func (e *Engine) tableQuery(f TableFilters) *gorm.DB {
	tx := e.db.Model(&models.StashEvent{})
	if f.Account != "" {
		tx = tx.Where(`LOWER(account) LIKE ? ESCAPE '!'`, containsPattern(f.Account))
	}
	if f.Stash != "" {
		tx = tx.Where(`LOWER(stash) LIKE ? ESCAPE '!'`, containsPattern(f.Stash))
	}
	if f.Item != "" {
		tx = tx.Where(`LOWER(item) LIKE ? ESCAPE '!'`, containsPattern(f.Item))
	}
	if f.Action != "" && f.Action != "all" {
		tx = tx.Where("action = ?", f.Action)
	}
	if f.League != "" {
		tx = tx.Where("league = ?", f.League)
	}
	return tx
}

// containsPattern builds a case-insensitive LIKE pattern. "!" is the escape
// character because backslash literals parse differently across dialects.
func containsPattern(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
	return "%" + s + "%"
}
