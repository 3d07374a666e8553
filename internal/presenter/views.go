package presenter

import (
	"strconv"

	"example.com/laborsync/internal/domain"
)

// SummaryView is the worked-today panel.
type SummaryView struct {
	Hours        string
	FirstClockIn string
	LastClockOut string
}

// Summary formats a DailyWorkSummary.
func Summary(summary domain.DailyWorkSummary) SummaryView {
	return SummaryView{
		Hours:        FormatHours(summary.Hours),
		FirstClockIn: FormatOptionalTimestamp(summary.FirstClockIn),
		LastClockOut: FormatOptionalTimestamp(summary.LastClockOut),
	}
}

// HistoryRow is one line of the clock history table.
type HistoryRow struct {
	Task     string
	Shift    string
	ClockIn  string
	ClockOut string
	Duration string
	Status   string
	Note     string
}

// HistoryRows formats records newest first.
func HistoryRows(records []domain.ClockRecord) []HistoryRow {
	rows := make([]HistoryRow, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		task := record.TaskTitle
		if task == "" {
			task = record.TaskID
		}
		note := record.Note
		if note == "" {
			note = Placeholder
		}
		rows = append(rows, HistoryRow{
			Task:     task,
			Shift:    ShiftLabel(record.AssignedShift),
			ClockIn:  FormatTimestamp(record.ClockIn),
			ClockOut: FormatOptionalTimestamp(record.ClockOut),
			Duration: FormatDuration(record),
			Status:   Status(record),
			Note:     note,
		})
	}
	return rows
}

// DayRow is one line of the per-day attendance view.
type DayRow struct {
	Day      string
	Hours    string
	Sessions string
	First    string
	Last     string
}

// DayRows formats per-day totals in the given order.
func DayRows(days []domain.DayTotal) []DayRow {
	rows := make([]DayRow, 0, len(days))
	for _, day := range days {
		row := DayRow{
			Day:      day.Day.Format(dayLayout),
			Hours:    FormatHours(day.Hours),
			Sessions: strconv.Itoa(len(day.Records)),
			First:    Placeholder,
			Last:     Placeholder,
		}
		if len(day.Records) > 0 {
			row.First = day.Records[0].ClockIn.Format(timeLayout)
			last := day.Records[len(day.Records)-1]
			if last.ClockOut != nil {
				row.Last = last.ClockOut.Format(timeLayout)
			} else {
				row.Last = "Pending"
			}
		}
		rows = append(rows, row)
	}
	return rows
}
