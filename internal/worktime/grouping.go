package worktime

import (
	"sort"
	"time"

	"example.com/laborsync/internal/domain"
)

// GroupByDay buckets records by the local calendar day of their clock-in, covering every day
// from the day of `from` to the day of `to` inclusive. Days without records have zero hours.
// Open records are closed at now.
func GroupByDay(history []domain.ClockRecord, now, from, to time.Time) []domain.DayTotal {
	first := DayStart(from)
	last := DayStart(to)
	if last.Before(first) {
		return nil
	}

	index := make(map[string]int)
	var days []domain.DayTotal
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		index[dayKey(day)] = len(days)
		days = append(days, domain.DayTotal{Day: day})
	}

	sorted := make([]domain.ClockRecord, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ClockIn.Before(sorted[j].ClockIn)
	})

	for _, record := range sorted {
		i, ok := index[dayKey(record.ClockIn.In(first.Location()))]
		if !ok {
			continue
		}
		end := now
		if !record.Open() {
			end = *record.ClockOut
		}
		days[i].Hours += span(record.ClockIn, end).Hours()
		days[i].Records = append(days[i].Records, record)
	}
	return days
}

// WeekRange returns Monday and Sunday of the ISO week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	offset := int(t.Weekday())
	if offset == 0 {
		offset = 7
	}
	start := DayStart(t).AddDate(0, 0, -offset+1)
	return start, start.AddDate(0, 0, 6)
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
