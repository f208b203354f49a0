package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"stash-tracker/internal/models"
)

// Upper bound on rejected rows echoed back to the uploader.
const maxInvalidSamples = 10

// Leading quantity prefix on item names, e.g. "5× Chaos Orb".
var multiplierPattern = regexp.MustCompile(`^(\d+)×\s*`)

var requiredColumns = []string{"Date", "Id", "League", "Account", "Action", "Stash", "Item"}

// InvalidRow pairs a rejected CSV row with per-field issue flags, mirroring
// the columns the uploader needs to fix.
type InvalidRow struct {
	Row    map[string]string `json:"row"`
	Issues map[string]bool   `json:"issues"`
}

// Result is the outcome of normalizing one uploaded CSV: the rows that can be
// stored plus a bounded sample of the ones that cannot.
type Result struct {
	Total          int                 `json:"total"`
	Valid          []models.StashEvent `json:"-"`
	InvalidCount   int                 `json:"invalid"`
	InvalidSamples []InvalidRow        `json:"invalid_samples"`
}

// Normalize parses raw CSV text into canonical stash events. Rejected rows
// are counted and sampled, never fatal; the error return is reserved for CSV
// that cannot be parsed at all.
func Normalize(csvText string) (*Result, error) {
	reader := csv.NewReader(strings.NewReader(csvText))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	// Exports from some tools prefix the first header cell with a UTF-8 BOM.
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	result := &Result{}
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", result.Total+2, err)
		}

		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[name] = fields[i]
			} else {
				row[name] = ""
			}
		}
		result.Total++

		event, issues := normalizeRow(row)
		if len(issues) > 0 {
			result.InvalidCount++
			if len(result.InvalidSamples) < maxInvalidSamples {
				flags := make(map[string]bool, len(requiredColumns))
				for _, col := range requiredColumns {
					flags[columnKey(col)] = issues[columnKey(col)]
				}
				result.InvalidSamples = append(result.InvalidSamples, InvalidRow{Row: row, Issues: flags})
			}
			continue
		}
		result.Valid = append(result.Valid, *event)
	}
	return result, nil
}

// normalizeRow applies the cleanup rules to one parsed row and returns either
// a canonical event or the set of fields that failed.
func normalizeRow(row map[string]string) (*models.StashEvent, map[string]bool) {
	issues := make(map[string]bool)

	date := cleanField(row["Date"])
	league := cleanField(row["League"])
	account := cleanField(row["Account"])
	stash := cleanField(row["Stash"])
	item := cleanField(row["Item"])
	action := strings.ToLower(cleanField(row["Action"]))

	opID, err := strconv.ParseInt(cleanField(row["Id"]), 10, 64)
	if err != nil || opID == 0 {
		issues["op_id"] = true
	}
	if date == "" {
		issues["date"] = true
	}
	if league == "" {
		issues["league"] = true
	}
	if account == "" {
		issues["account"] = true
	}
	if stash == "" {
		issues["stash"] = true
	}
	if item == "" {
		issues["item"] = true
	}
	if !models.ValidAction(action) {
		issues["action"] = true
	}
	if len(issues) > 0 {
		return nil, issues
	}

	itemCount := 1
	if m := multiplierPattern.FindStringSubmatch(item); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
			itemCount = n
			item = item[len(m[0]):]
		}
	}

	return &models.StashEvent{
		Date:      date,
		OpID:      opID,
		League:    league,
		Account:   account,
		Action:    action,
		Stash:     stash,
		Item:      item,
		ItemCount: itemCount,
	}, nil
}

// cleanField trims surrounding whitespace and strips embedded quote
// characters left over from hand-edited exports.
func cleanField(s string) string {
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, `'`, "")
	return strings.TrimSpace(s)
}

func columnKey(col string) string {
	switch col {
	case "Id":
		return "op_id"
	default:
		return strings.ToLower(col)
	}
}
