package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/julianstephens/salahlog/internal/constants"
)

var dateParser = newDateParser()

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ResolveDate turns user input into a YYYY-MM-DD date relative to now.
// It accepts an ISO date, "today", or natural language such as
// "yesterday" or "last friday". An empty input means today.
func ResolveDate(input string, now time.Time) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.EqualFold(input, "today") {
		return now.Format(constants.DateFormat), nil
	}

	if t, err := time.ParseInLocation(constants.DateFormat, input, now.Location()); err == nil {
		return t.Format(constants.DateFormat), nil
	}

	r, err := dateParser.Parse(input, now)
	if err != nil {
		return "", fmt.Errorf("failed to parse date %q: %w", input, err)
	}
	if r == nil {
		return "", fmt.Errorf("could not understand date %q (try YYYY-MM-DD or \"yesterday\")", input)
	}
	return r.Time.In(now.Location()).Format(constants.DateFormat), nil
}

// DaysBack returns the dates from today going back n-1 days, newest first.
func DaysBack(today time.Time, n int) []string {
	dates := make([]string, 0, n)
	for i := 0; i < n; i++ {
		dates = append(dates, today.AddDate(0, 0, -i).Format(constants.DateFormat))
	}
	return dates
}
