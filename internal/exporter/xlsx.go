// Package exporter writes statistics reports to Excel workbooks.
package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/internal/services"
)

// Sheet names of an exported report
const (
	SheetSummary  = "Summary"
	SheetTime     = "Time"
	SheetStations = "Stations"
	SheetDuration = "Duration"
	SheetUsers    = "Users"
)

// SaveReport writes report to an .xlsx file at path
func SaveReport(path string, report *services.Report) error {
	f, err := buildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// WriteReport writes report as an .xlsx workbook to w
func WriteReport(w io.Writer, report *services.Report) error {
	f, err := buildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// sheetWriter appends rows to one worksheet
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	bold  int
	err   error
}

func (s *sheetWriter) header(values ...interface{}) {
	s.append(values...)
	if s.err != nil {
		return
	}
	end, _ := excelize.CoordinatesToCellName(len(values), s.row)
	s.err = s.f.SetCellStyle(s.sheet, fmt.Sprintf("A%d", s.row), end, s.bold)
}

func (s *sheetWriter) append(values ...interface{}) {
	if s.err != nil {
		return
	}
	s.row++
	s.err = s.f.SetSheetRow(s.sheet, fmt.Sprintf("A%d", s.row), &values)
}

func (s *sheetWriter) blank() {
	s.row++
}

func buildWorkbook(report *services.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetTime, SheetStations, SheetDuration, SheetUsers} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	writers := []func(*sheetWriter, *services.Report){
		writeSummary,
		writeTime,
		writeStations,
		writeDuration,
		writeUsers,
	}
	for i, name := range []string{SheetSummary, SheetTime, SheetStations, SheetDuration, SheetUsers} {
		sw := &sheetWriter{f: f, sheet: name, bold: bold}
		writers[i](sw, report)
		if sw.err == nil {
			sw.err = f.SetColWidth(name, "A", "B", 32)
		}
		if sw.err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write sheet %s: %w", name, sw.err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writeSummary(s *sheetWriter, r *services.Report) {
	s.header("Field", "Value")
	s.append("City", r.City)
	s.append("Month", r.Month)
	s.append("Day", r.Day)
	s.append("Trips", r.TripCount)

	s.blank()
	s.header("Section", "Elapsed")
	for _, section := range services.Sections {
		s.append(section, r.Timings[section])
	}

	if len(r.Errors) > 0 {
		s.blank()
		s.header("Section", "Error")
		for _, section := range services.Sections {
			if msg, ok := r.Errors[section]; ok {
				s.append(section, msg)
			}
		}
	}
}

func writeTime(s *sheetWriter, r *services.Report) {
	s.header("Statistic", "Value")
	if r.Time == nil {
		s.append("Unavailable", r.Errors[services.SectionTime])
		return
	}
	s.append("Most common month", r.Time.MonthName)
	s.append("Most common day of week", r.Time.MostCommonDay)
	s.append("Most common start hour", r.Time.HourLabel)
}

func writeStations(s *sheetWriter, r *services.Report) {
	s.header("Statistic", "Station", "Count")
	if r.Stations == nil {
		s.append("Unavailable", r.Errors[services.SectionStations])
		return
	}
	st := r.Stations
	s.append("Most common start station", st.MostCommonStartStation, st.StartStationCount)
	s.append("Most common end station", st.MostCommonEndStation, st.EndStationCount)
	s.append("Most common trip", st.MostCommonTrip.StartStation+" -> "+st.MostCommonTrip.EndStation, st.TripCount)
}

func writeDuration(s *sheetWriter, r *services.Report) {
	s.header("Statistic", "Value")
	d := r.Duration
	if d == nil {
		d = &services.DurationStats{}
	}
	s.append("Trips", d.TripCount)
	s.append("Total seconds", d.TotalSeconds)
	s.append("Total", fmt.Sprintf("%d days, %d hours, %d minutes, %.0f seconds",
		d.Total.Days, d.Total.Hours, d.Total.Minutes, d.Total.Seconds))
	s.append("Mean seconds", d.MeanSeconds)
	s.append("Mean", fmt.Sprintf("%d minutes, %.0f seconds", d.Mean.Minutes, d.Mean.Seconds))
}

func writeUsers(s *sheetWriter, r *services.Report) {
	s.header("User type", "Count")
	if r.Users == nil {
		return
	}
	for _, vc := range r.Users.UserTypes {
		s.append(vc.Value, vc.Count)
	}

	if r.Users.Genders != nil {
		s.blank()
		s.header("Gender", "Count")
		for _, vc := range r.Users.Genders {
			s.append(vc.Value, vc.Count)
		}
	}

	if by := r.Users.BirthYears; by != nil {
		s.blank()
		s.header("Birth year", "Value")
		s.append("Earliest", by.Earliest)
		s.append("Most recent", by.MostRecent)
		s.append("Most common", by.MostCommon)
	}
}

// FileName returns the default export file name for a session
func FileName(city string, month models.MonthSelector, day models.DaySelector) string {
	return fmt.Sprintf("bikeshare_%s_%s_%s.xlsx", strings.ReplaceAll(city, " ", "_"), month, day)
}
