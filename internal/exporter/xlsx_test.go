package exporter

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/internal/services"
)

func sampleReport() *services.Report {
	return &services.Report{
		City:      "chicago",
		Month:     "june",
		Day:       "all",
		TripCount: 3,
		Time: &services.TimeStats{
			MostCommonMonth: 6,
			MonthName:       "June",
			MostCommonDay:   "Friday",
			MostCommonHour:  17,
			HourLabel:       "17:00",
		},
		Stations: &services.StationStats{
			MostCommonStartStation: "Canal St",
			StartStationCount:      2,
			MostCommonEndStation:   "Clark St",
			EndStationCount:        2,
			MostCommonTrip:         services.StationPair{StartStation: "Canal St", EndStation: "Clark St"},
			TripCount:              2,
		},
		Duration: &services.DurationStats{
			TripCount:    3,
			TotalSeconds: 360,
			MeanSeconds:  120,
			Total:        services.TotalBreakdown{Minutes: 6},
			Mean:         services.MeanBreakdown{Minutes: 2},
		},
		Users: &services.UserStats{
			UserTypes: []services.ValueCount{{Value: "Subscriber", Count: 2}, {Value: "Customer", Count: 1}},
			Genders:   []services.ValueCount{{Value: "Male", Count: 2}},
			BirthYears: &services.BirthYearStats{
				Earliest: 1970, MostRecent: 1999, MostCommon: 1985,
			},
		},
		Timings: map[string]string{"time": "1ms", "stations": "2ms", "duration": "0s", "users": "1ms"},
	}
}

func openWorkbook(t *testing.T, report *services.Report) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWriteReport(t *testing.T) {
	f := openWorkbook(t, sampleReport())

	assert.Equal(t, []string{SheetSummary, SheetTime, SheetStations, SheetDuration, SheetUsers}, f.GetSheetList())

	city, err := f.GetCellValue(SheetSummary, "B2")
	require.NoError(t, err)
	assert.Equal(t, "chicago", city)

	day, err := f.GetCellValue(SheetTime, "B3")
	require.NoError(t, err)
	assert.Equal(t, "Friday", day)

	trip, err := f.GetCellValue(SheetStations, "B4")
	require.NoError(t, err)
	assert.Equal(t, "Canal St -> Clark St", trip)

	total, err := f.GetCellValue(SheetDuration, "B4")
	require.NoError(t, err)
	assert.Equal(t, "0 days, 0 hours, 6 minutes, 0 seconds", total)

	rows, err := f.GetRows(SheetUsers)
	require.NoError(t, err)
	assert.Equal(t, []string{"Subscriber", "2"}, rows[1])
	assert.Equal(t, []string{"Most common", "1985"}, rows[len(rows)-1])
}

func TestWriteReport_MissingSections(t *testing.T) {
	report := sampleReport()
	report.TripCount = 0
	report.Time = nil
	report.Stations = nil
	report.Users = &services.UserStats{UserTypes: []services.ValueCount{}}
	report.Errors = map[string]string{
		services.SectionTime:     "no trips available to compute time statistics",
		services.SectionStations: "no trips available to compute stations statistics",
	}

	f := openWorkbook(t, report)

	msg, err := f.GetCellValue(SheetTime, "B2")
	require.NoError(t, err)
	assert.Equal(t, report.Errors[services.SectionTime], msg)

	rows, err := f.GetRows(SheetUsers)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Section", "Error"}, summary[len(summary)-3])
}

func TestSaveReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName("new york city", models.MonthOf(time.March), models.AllDays))
	assert.Equal(t, "bikeshare_new_york_city_march_all.xlsx", filepath.Base(path))

	require.NoError(t, SaveReport(path, sampleReport()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 5)
}
