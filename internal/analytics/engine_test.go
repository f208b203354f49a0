package analytics

import (
	"errors"
	"testing"
	"time"

	"stash-tracker/internal/config"
	"stash-tracker/internal/database"
	"stash-tracker/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		SystemAccounts:    []string{"sys#0001"},
		CommunityAccounts: []string{"comm#0001"},
		CurrencyTabs:      []string{"Currency"},
		CurrencyItems:     []string{"Chaos Orb", "Divine Orb"},
		GemItems:          []string{"Empower Support"},
	}
}

func ago(d time.Duration) string {
	return time.Now().UTC().Add(-d).Format("2006-01-02 15:04:05")
}

// newTestEngine opens a fresh in-memory store and returns the engine plus a
// seeding helper that fills in op_id and sensible defaults.
func newTestEngine(t *testing.T) (*Engine, func(models.StashEvent)) {
	t.Helper()
	db, err := database.Initialize(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	opID := int64(0)
	seed := func(ev models.StashEvent) {
		opID++
		ev.OpID = opID
		if ev.League == "" {
			ev.League = "Standard"
		}
		if ev.Date == "" {
			ev.Date = ago(time.Hour)
		}
		if ev.Stash == "" {
			ev.Stash = "Dump"
		}
		if ev.Item == "" {
			ev.Item = "Scroll of Wisdom"
		}
		if ev.ItemCount == 0 {
			ev.ItemCount = 1
		}
		if err := db.Create(&ev).Error; err != nil {
			t.Fatalf("Failed to seed event: %v", err)
		}
	}
	return NewEngine(db, testConfig()), seed
}

func wantParamError(t *testing.T, err error, param string) {
	t.Helper()
	var paramErr *ParamError
	if !errors.As(err, &paramErr) {
		t.Fatalf("Expected ParamError, got %v", err)
	}
	if paramErr.Param != param {
		t.Errorf("Expected ParamError on %q, got %q", param, paramErr.Param)
	}
}

func TestTopUsers_ExactActionWithTieBreak(t *testing.T) {
	e, seed := newTestEngine(t)
	for i := 0; i < 3; i++ {
		seed(models.StashEvent{Account: "bob#2", Action: models.ActionAdded})
		seed(models.StashEvent{Account: "alice#1", Action: models.ActionAdded})
	}
	seed(models.StashEvent{Account: "carol#3", Action: models.ActionAdded})
	seed(models.StashEvent{Account: "dave#4", Action: models.ActionModified})
	seed(models.StashEvent{Account: "dave#4", Action: models.ActionModified})

	results, err := e.TopUsers(models.ActionAdded, Filters{})
	if err != nil {
		t.Fatalf("TopUsers failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 accounts, got %d: %+v", len(results), results)
	}
	// alice and bob tie on 3; the tie breaks on account name ascending.
	if results[0].Account != "alice#1" || results[1].Account != "bob#2" {
		t.Errorf("Tie-break order wrong: %+v", results)
	}
	if results[0].Count != 3 || results[2].Count != 1 {
		t.Errorf("Counts wrong: %+v", results)
	}
	for _, r := range results {
		if r.Account == "dave#4" {
			t.Errorf("Account with only modified events appeared in added results")
		}
	}
}

func TestTopUsers_InvalidAction(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.TopUsers("traded", Filters{})
	wantParamError(t, err, "action")
}

func TestTopUsers_LimitTen(t *testing.T) {
	e, seed := newTestEngine(t)
	accounts := []string{"a#1", "b#2", "c#3", "d#4", "e#5", "f#6", "g#7", "h#8", "i#9", "j#10", "k#11", "l#12"}
	for _, acct := range accounts {
		seed(models.StashEvent{Account: acct, Action: models.ActionAdded})
	}

	results, err := e.TopUsers(models.ActionAdded, Filters{})
	if err != nil {
		t.Fatalf("TopUsers failed: %v", err)
	}
	if len(results) != 10 {
		t.Errorf("Expected top users capped at 10, got %d", len(results))
	}
}

func TestUserRatios(t *testing.T) {
	e, seed := newTestEngine(t)
	seed(models.StashEvent{Account: "A#1", Action: models.ActionAdded, ItemCount: 5})
	seed(models.StashEvent{Account: "A#1", Action: models.ActionRemoved, ItemCount: 2})
	seed(models.StashEvent{Account: "B#2", Action: models.ActionRemoved, ItemCount: 3})
	seed(models.StashEvent{Account: "C#3", Action: models.ActionModified, ItemCount: 9})

	results, err := e.UserRatios(Filters{}, 10, "desc")
	if err != nil {
		t.Fatalf("UserRatios failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 accounts (modified-only excluded), got %d: %+v", len(results), results)
	}
	if results[0].Account != "A#1" || results[0].Additions != 5 || results[0].Removals != 2 || results[0].Ratio != 3 {
		t.Errorf("Unexpected first row: %+v", results[0])
	}
	if results[1].Account != "B#2" || results[1].Additions != 0 || results[1].Removals != 3 || results[1].Ratio != -3 {
		t.Errorf("Unexpected second row: %+v", results[1])
	}

	asc, err := e.UserRatios(Filters{}, 10, "asc")
	if err != nil {
		t.Fatalf("UserRatios asc failed: %v", err)
	}
	if asc[0].Account != "B#2" {
		t.Errorf("Expected B#2 first ascending, got %+v", asc)
	}
}

func TestUserRatios_LimitAndOrderValidation(t *testing.T) {
	e, seed := newTestEngine(t)
	for _, acct := range []string{"a#1", "b#2", "c#3"} {
		seed(models.StashEvent{Account: acct, Action: models.ActionAdded})
	}

	results, err := e.UserRatios(Filters{}, 2, "desc")
	if err != nil {
		t.Fatalf("UserRatios failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected limit 2, got %d", len(results))
	}

	_, err = e.UserRatios(Filters{}, 10, "sideways")
	wantParamError(t, err, "order")
}

func TestActivity_SparseAscending(t *testing.T) {
	e, seed := newTestEngine(t)
	// Two events three days ago, three now, nothing in between.
	old := ago(72 * time.Hour)
	recent := ago(time.Hour)
	seed(models.StashEvent{Account: "a#1", Action: models.ActionAdded, Date: old})
	seed(models.StashEvent{Account: "a#1", Action: models.ActionRemoved, Date: old})
	seed(models.StashEvent{Account: "a#1", Action: models.ActionAdded, Date: recent})
	seed(models.StashEvent{Account: "a#1", Action: models.ActionAdded, Date: recent})
	seed(models.StashEvent{Account: "a#1", Action: models.ActionModified, Date: recent})

	buckets, err := e.ActivityByTimeSegment("day", Filters{TimeRange: "7d"})
	if err != nil {
		t.Fatalf("ActivityByTimeSegment failed: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("Expected 2 sparse buckets, got %d: %+v", len(buckets), buckets)
	}
	if !(buckets[0].Segment < buckets[1].Segment) {
		t.Errorf("Buckets not strictly ascending: %+v", buckets)
	}
	if buckets[0].Added != 1 || buckets[0].Removed != 1 || buckets[0].Modified != 0 {
		t.Errorf("Unexpected old bucket: %+v", buckets[0])
	}
	if buckets[1].Added != 2 || buckets[1].Removed != 0 || buckets[1].Modified != 1 {
		t.Errorf("Unexpected recent bucket: %+v", buckets[1])
	}
}

func TestActivity_InvalidSlice(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.ActivityByTimeSegment("fortnight", Filters{})
	wantParamError(t, err, "timeSlice")
}

func TestFilters_TimeRange(t *testing.T) {
	e, seed := newTestEngine(t)
	seed(models.StashEvent{Account: "recent#1", Action: models.ActionAdded, Date: ago(time.Hour)})
	seed(models.StashEvent{Account: "stale#2", Action: models.ActionAdded, Date: ago(10 * 24 * time.Hour)})

	results, err := e.TopUsers(models.ActionAdded, Filters{TimeRange: "7d"})
	if err != nil {
		t.Fatalf("TopUsers failed: %v", err)
	}
	if len(results) != 1 || results[0].Account != "recent#1" {
		t.Errorf("Expected only the recent account inside 7d, got %+v", results)
	}

	all, err := e.TopUsers(models.ActionAdded, Filters{TimeRange: "all"})
	if err != nil {
		t.Fatalf("TopUsers failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected both accounts with no window, got %+v", all)
	}

	_, err = e.TopUsers(models.ActionAdded, Filters{TimeRange: "1y"})
	wantParamError(t, err, "timeRange")
}

func TestFilters_ExcludeAccountsMonotonic(t *testing.T) {
	e, seed := newTestEngine(t)
	seed(models.StashEvent{Account: "sys#0001", Action: models.ActionAdded})
	seed(models.StashEvent{Account: "comm#0001", Action: models.ActionAdded})
	seed(models.StashEvent{Account: "player#1", Action: models.ActionAdded})

	unfiltered, err := e.TopUsers(models.ActionAdded, Filters{})
	if err != nil {
		t.Fatalf("TopUsers failed: %v", err)
	}
	excluded, err := e.TopUsers(models.ActionAdded, Filters{ExcludeSystemAccounts: true, ExcludeCommunityAccounts: true})
	if err != nil {
		t.Fatalf("TopUsers failed: %v", err)
	}

	if len(excluded) >= len(unfiltered) {
		t.Errorf("Exclusion did not remove rows: %d vs %d", len(excluded), len(unfiltered))
	}
	// Every excluded-mode row must also be present without the filter.
	seen := map[string]bool{}
	for _, r := range unfiltered {
		seen[r.Account] = true
	}
	for _, r := range excluded {
		if !seen[r.Account] {
			t.Errorf("Account %q appeared only with exclusion enabled", r.Account)
		}
		if r.Account == "sys#0001" || r.Account == "comm#0001" {
			t.Errorf("Configured account %q not excluded", r.Account)
		}
	}
}

func TestFilters_League(t *testing.T) {
	e, seed := newTestEngine(t)
	seed(models.StashEvent{Account: "std#1", Action: models.ActionAdded, League: "Standard"})
	seed(models.StashEvent{Account: "hc#2", Action: models.ActionAdded, League: "Hardcore"})

	results, err := e.TopUsers(models.ActionAdded, Filters{League: "Hardcore"})
	if err != nil {
		t.Fatalf("TopUsers failed: %v", err)
	}
	if len(results) != 1 || results[0].Account != "hc#2" {
		t.Errorf("Expected only the Hardcore account, got %+v", results)
	}
}

func TestAccountStats(t *testing.T) {
	e, seed := newTestEngine(t)
	hero := "Hero#1"
	seed(models.StashEvent{Account: hero, Action: models.ActionAdded, Stash: "Currency", Item: "Chaos Orb", ItemCount: 5})
	seed(models.StashEvent{Account: hero, Action: models.ActionAdded, Stash: "Currency", Item: "Chaos Orb", ItemCount: 5})
	seed(models.StashEvent{Account: hero, Action: models.ActionRemoved, Stash: "Currency", Item: "Chaos Orb", ItemCount: 10})
	seed(models.StashEvent{Account: hero, Action: models.ActionAdded, Stash: "Currency", Item: "Divine Orb", ItemCount: 3})
	// Currency item outside a currency tab does not count as currency.
	seed(models.StashEvent{Account: hero, Action: models.ActionAdded, Stash: "Dump", Item: "Chaos Orb", ItemCount: 4})
	seed(models.StashEvent{Account: hero, Action: models.ActionAdded, Stash: "Gems", Item: "Empower Support", ItemCount: 2})
	seed(models.StashEvent{Account: hero, Action: models.ActionRemoved, Stash: "Gems", Item: "Empower Support", ItemCount: 1})
	seed(models.StashEvent{Account: hero, Action: models.ActionModified, Stash: "Currency", Item: "Chaos Orb", ItemCount: 7})

	stats, err := e.AccountStats(hero, "Standard", "")
	if err != nil {
		t.Fatalf("AccountStats failed: %v", err)
	}
	if stats == nil {
		t.Fatal("Expected stats, got nil")
	}

	chaos := stats.Currency["Chaos Orb"]
	if chaos.Added != 10 || chaos.Removed != 10 || chaos.Balance != 0 {
		t.Errorf("Unexpected Chaos Orb totals: %+v", chaos)
	}
	divine := stats.Currency["Divine Orb"]
	if divine.Added != 3 || divine.Balance != 3 {
		t.Errorf("Unexpected Divine Orb totals: %+v", divine)
	}
	if stats.Gems.Added != 2 || stats.Gems.Removed != 1 {
		t.Errorf("Unexpected gem totals: %+v", stats.Gems)
	}
	// The dump-tab Chaos Orb lands in Other.
	if stats.Other.Added != 4 {
		t.Errorf("Unexpected other totals: %+v", stats.Other)
	}
	if stats.TotalAdded != 19 || stats.TotalRemoved != 11 {
		t.Errorf("Unexpected grand totals: added=%d removed=%d", stats.TotalAdded, stats.TotalRemoved)
	}
}

func TestAccountStats_NoData(t *testing.T) {
	e, seed := newTestEngine(t)
	seed(models.StashEvent{Account: "Hero#1", Action: models.ActionAdded, League: "Standard"})

	stats, err := e.AccountStats("Nobody#9", "Standard", "")
	if err != nil {
		t.Fatalf("AccountStats failed: %v", err)
	}
	if stats != nil {
		t.Errorf("Expected nil for unknown account, got %+v", stats)
	}

	stats, err = e.AccountStats("Hero#1", "Hardcore", "")
	if err != nil {
		t.Fatalf("AccountStats failed: %v", err)
	}
	if stats != nil {
		t.Errorf("Expected nil for wrong league, got %+v", stats)
	}
}

func TestAccountStats_EmptyWindowIsNotNoData(t *testing.T) {
	e, seed := newTestEngine(t)
	seed(models.StashEvent{Account: "Hero#1", Action: models.ActionAdded, Date: ago(40 * 24 * time.Hour)})

	stats, err := e.AccountStats("Hero#1", "Standard", "7d")
	if err != nil {
		t.Fatalf("AccountStats failed: %v", err)
	}
	if stats == nil {
		t.Fatal("Expected zero-activity stats for a known account, got nil")
	}
	if stats.TotalAdded != 0 || stats.TotalRemoved != 0 || len(stats.Currency) != 0 {
		t.Errorf("Expected empty stats inside window, got %+v", stats)
	}

	_, err = e.AccountStats("Hero#1", "Standard", "yesterday")
	wantParamError(t, err, "dateRange")
}

func TestTableData_Pagination(t *testing.T) {
	e, seed := newTestEngine(t)
	for i := 0; i < 7; i++ {
		seed(models.StashEvent{Account: "Hero#1", Action: models.ActionAdded, Date: ago(time.Duration(i) * time.Hour)})
	}

	page, err := e.TableData(TableFilters{}, 1, 3)
	if err != nil {
		t.Fatalf("TableData failed: %v", err)
	}
	if page.Pagination.Total != 7 || page.Pagination.TotalPages != 3 {
		t.Errorf("Unexpected pagination: %+v", page.Pagination)
	}
	if len(page.Data) != 3 {
		t.Errorf("Expected 3 rows on page 1, got %d", len(page.Data))
	}

	last, err := e.TableData(TableFilters{}, 3, 3)
	if err != nil {
		t.Fatalf("TableData failed: %v", err)
	}
	if len(last.Data) != 1 {
		t.Errorf("Expected 1 row on page 3, got %d", len(last.Data))
	}

	beyond, err := e.TableData(TableFilters{}, 5, 3)
	if err != nil {
		t.Fatalf("TableData past the end failed: %v", err)
	}
	if len(beyond.Data) != 0 {
		t.Errorf("Expected empty data past the end, got %d rows", len(beyond.Data))
	}
	if beyond.Pagination.Total != 7 {
		t.Errorf("Expected total preserved past the end, got %d", beyond.Pagination.Total)
	}
}

func TestTableData_Filters(t *testing.T) {
	e, seed := newTestEngine(t)
	seed(models.StashEvent{Account: "Hero#1234", Action: models.ActionAdded, Item: "Chaos Orb", Stash: "Currency"})
	seed(models.StashEvent{Account: "Villain#1", Action: models.ActionRemoved, Item: "Tabula Rasa", Stash: "Dump"})

	page, err := e.TableData(TableFilters{Account: "hErO"}, 1, 25)
	if err != nil {
		t.Fatalf("TableData failed: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].Account != "Hero#1234" {
		t.Errorf("Case-insensitive substring filter failed: %+v", page.Data)
	}

	page, err = e.TableData(TableFilters{Action: "removed"}, 1, 25)
	if err != nil {
		t.Fatalf("TableData failed: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].Action != "removed" {
		t.Errorf("Action filter failed: %+v", page.Data)
	}

	page, err = e.TableData(TableFilters{Action: "all"}, 1, 25)
	if err != nil {
		t.Fatalf("TableData failed: %v", err)
	}
	if len(page.Data) != 2 {
		t.Errorf("Expected 'all' action to match everything, got %d rows", len(page.Data))
	}

	_, err = e.TableData(TableFilters{Action: "traded"}, 1, 25)
	wantParamError(t, err, "action")
}

func TestTableData_NewestFirst(t *testing.T) {
	e, seed := newTestEngine(t)
	seed(models.StashEvent{Account: "a#1", Action: models.ActionAdded, Date: "2025-01-01 10:00:00"})
	seed(models.StashEvent{Account: "b#2", Action: models.ActionAdded, Date: "2025-03-01 10:00:00"})
	seed(models.StashEvent{Account: "c#3", Action: models.ActionAdded, Date: "2025-02-01 10:00:00"})

	page, err := e.TableData(TableFilters{}, 1, 25)
	if err != nil {
		t.Fatalf("TableData failed: %v", err)
	}
	if page.Data[0].Account != "b#2" || page.Data[2].Account != "a#1" {
		t.Errorf("Rows not newest first: %+v", page.Data)
	}
}

func TestExportRows(t *testing.T) {
	e, seed := newTestEngine(t)
	for i := 0; i < 5; i++ {
		seed(models.StashEvent{Account: "Hero#1", Action: models.ActionAdded, Date: ago(time.Duration(i) * time.Hour)})
	}

	rows, err := e.ExportRows(TableFilters{}, 3)
	if err != nil {
		t.Fatalf("ExportRows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("Expected export limited to 3 rows, got %d", len(rows))
	}
	if rows[0].Date < rows[1].Date {
		t.Errorf("Export not newest first: %+v", rows)
	}
}
