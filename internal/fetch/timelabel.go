package fetch

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"macrovecm/internal/series"
)

var (
	reDay     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	reMonth   = regexp.MustCompile(`^(\d{4})-?M?(\d{2})$`)
	reQuarter = regexp.MustCompile(`^(\d{4})-?Q([1-4])$`)
	reYear    = regexp.MustCompile(`^(\d{4})$`)
)

// ParseTimeLabel parses a provider period label. Quarters map to their first
// day, years to January 1st.
func ParseTimeLabel(label string) (time.Time, series.Frequency, error) {
	if m := reDay.FindStringSubmatch(label); m != nil {
		t, err := time.Parse(time.DateOnly, label)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("parse time label %q: %w", label, err)
		}
		return t, series.Daily, nil
	}
	if m := reQuarter.FindStringSubmatch(label); m != nil {
		y, _ := strconv.Atoi(m[1])
		q, _ := strconv.Atoi(m[2])
		return time.Date(y, time.Month(3*(q-1)+1), 1, 0, 0, 0, 0, time.UTC), series.Quarterly, nil
	}
	if m := reMonth.FindStringSubmatch(label); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		if mo < 1 || mo > 12 {
			return time.Time{}, 0, fmt.Errorf("parse time label %q: month out of range", label)
		}
		return time.Date(y, time.Month(mo), 1, 0, 0, 0, 0, time.UTC), series.Monthly, nil
	}
	if m := reYear.FindStringSubmatch(label); m != nil {
		y, _ := strconv.Atoi(m[1])
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), series.Annual, nil
	}
	return time.Time{}, 0, fmt.Errorf("parse time label %q: unknown format", label)
}
