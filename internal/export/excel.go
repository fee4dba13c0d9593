// Package export builds spreadsheet reports of lab records.
package export

import (
	"bytes"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"lab-tracker-backend/internal/model"
)

// TimeLayout is how timestamps are written in reports and API responses.
const TimeLayout = "2006-01-02 15:04:05"

const (
	RecordsSheet       = "Lab Records"
	SummarySheet       = "Summary"
	CurrentStatusSheet = "Current Lab Status"

	StatusInLab   = "IN LAB"
	StatusLeftLab = "LEFT LAB"

	recordsHeaderColor = "#366092"
	statusHeaderColor  = "#4CAF50"
	maxColumnWidth     = 50
)

var recordsHeader = []string{
	"person_id", "name", "email", "phone", "department",
	"lab_name", "entry_time", "exit_time", "status",
}

var currentStatusHeader = []string{
	"name", "email", "department", "phone", "lab_name", "entry_time",
}

// RecordsFilename names the full export generated at now.
func RecordsFilename(now time.Time) string {
	return fmt.Sprintf("lab_records_export_%s.xlsx", now.Format("20060102_150405"))
}

// CurrentStatusFilename names the occupancy export generated at now.
func CurrentStatusFilename(now time.Time) string {
	return fmt.Sprintf("current_lab_status_%s.xlsx", now.Format("20060102_150405"))
}

// Records writes every record plus a summary sheet. records must have their
// Person loaded.
func Records(records []model.LabRecord, now time.Time) ([]byte, error) {
	rows := make([][]any, 0, len(records))
	inLab := 0
	persons := make(map[int64]struct{})
	for _, r := range records {
		status := StatusLeftLab
		exit := ""
		if r.ExitTime == nil {
			status = StatusInLab
			inLab++
		} else {
			exit = r.ExitTime.Format(TimeLayout)
		}
		persons[r.PersonID] = struct{}{}
		rows = append(rows, []any{
			r.PersonID, r.Person.Name, r.Person.Email, r.Person.Phone, r.Person.Department,
			r.LabName, r.EntryTime.Format(TimeLayout), exit, status,
		})
	}

	summary := [][]any{
		{"Total Records", len(records)},
		{"Current Lab Occupants", inLab},
		{"Unique Persons", len(persons)},
		{"Date Generated", now.Format(TimeLayout)},
	}

	return build([]sheet{
		{name: RecordsSheet, header: recordsHeader, rows: rows, color: recordsHeaderColor},
		{name: SummarySheet, header: []string{"Metric", "Value"}, rows: summary, color: recordsHeaderColor},
	})
}

// CurrentStatus writes the people currently inside a lab.
func CurrentStatus(open []model.LabRecord) ([]byte, error) {
	rows := make([][]any, 0, len(open))
	for _, r := range open {
		rows = append(rows, []any{
			r.Person.Name, r.Person.Email, r.Person.Department, r.Person.Phone,
			r.LabName, r.EntryTime.Format(TimeLayout),
		})
	}
	return build([]sheet{
		{name: CurrentStatusSheet, header: currentStatusHeader, rows: rows, color: statusHeaderColor},
	})
}

type sheet struct {
	name   string
	header []string
	rows   [][]any
	color  string
}

func build(sheets []sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, s sheet) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 12},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{s.color},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	widths := make([]int, len(s.header))
	for col, h := range s.header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(s.name, cell, h); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		widths[col] = utf8.RuneCountInString(h)
	}
	if len(s.header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(s.header), 1)
		if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for r, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
		for col, v := range row {
			if col < len(widths) {
				if n := utf8.RuneCountInString(fmt.Sprint(v)); n > widths[col] {
					widths[col] = n
				}
			}
		}
	}

	for col, w := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(s.name, name, name, float64(min(w+2, maxColumnWidth))); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}
