// Package helpers holds small shared utilities used across the pipeline.
package helpers

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CalendarQuarter returns the YYYYQn bucket containing the given date.
func CalendarQuarter(t time.Time) string {
	q := (int(t.Month())-1)/3 + 1
	return fmt.Sprintf("%dQ%d", t.Year(), q)
}

// QuarterFromDate maps a YYYY-MM-DD string to its YYYYQn bucket.
// Returns "" when the input is not a parseable date.
func QuarterFromDate(dateStr string) string {
	parts := strings.Split(strings.TrimSpace(dateStr), "-")
	if len(parts) != 3 {
		return ""
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return ""
	}
	return fmt.Sprintf("%sQ%d", parts[0], (month-1)/3+1)
}
