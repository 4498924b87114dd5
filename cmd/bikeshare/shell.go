package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"bikeshare-platform/internal/exporter"
	"bikeshare-platform/internal/models"
	"bikeshare-platform/internal/services"
	"bikeshare-platform/pkg/logging"
)

const separator = "----------------------------------------"

// prompter reads one answer per line
type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func newPrompter(r io.Reader, w io.Writer) *prompter {
	return &prompter{scanner: bufio.NewScanner(r), out: w}
}

// ask prints question and returns the next trimmed line, or io.EOF
func (p *prompter) ask(question string) (string, error) {
	if question != "" {
		fmt.Fprintln(p.out, question)
	}
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// yesNo re-prompts until the answer starts with y or n
func (p *prompter) yesNo(question string) (bool, error) {
	answer, err := p.ask(question)
	for err == nil {
		switch a := strings.ToLower(answer); {
		case strings.HasPrefix(a, "y"):
			return true, nil
		case strings.HasPrefix(a, "n"):
			return false, nil
		}
		answer, err = p.ask("Invalid input. Please type yes or no.")
	}
	return false, err
}

// shell is the interactive analysis loop
type shell struct {
	in        *prompter
	out       io.Writer
	trips     *services.TripService
	stats     *services.StatisticsService
	logger    *logging.StructuredLogger
	exportDir string
}

// run loops over analysis sessions until the user declines to restart or
// input ends
func (s *shell) run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Hello! Let's explore some US bikeshare data!")

	for {
		err := s.session(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		restart, err := s.in.yesNo("\nWould you like to restart? Enter yes or no.")
		if errors.Is(err, io.EOF) || (err == nil && !restart) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *shell) session(ctx context.Context) error {
	ctx = logging.WithSessionID(ctx, uuid.NewString())

	city, month, day, err := s.askFilters()
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, separator)

	session, err := s.trips.OpenSession(ctx, city, month, day)
	if err != nil {
		fmt.Fprintf(s.out, "Could not load %s: %v\n", city, err)
		return nil
	}
	fmt.Fprintf(s.out, "%d trips match %s, month=%s, day=%s.\n", session.Table.Len(), titleCase(session.City), session.Month, session.Day)

	steps := []struct {
		question string
		show     func(context.Context, *services.Session)
	}{
		{"Would you like to see travel time statistics? Yes or no", s.showTime},
		{"Would you like to see station statistics? Yes or no", s.showStations},
		{"Would you like to see trip duration statistics? Yes or no", s.showDuration},
		{"Would you like to see user statistics? Yes or no", s.showUsers},
	}
	for _, step := range steps {
		ok, err := s.in.yesNo(step.question)
		if err != nil {
			return err
		}
		if ok {
			step.show(ctx, session)
			fmt.Fprintln(s.out, separator)
		}
	}

	if err := s.showRows(session); err != nil {
		return err
	}

	if s.exportDir != "" {
		path := filepath.Join(s.exportDir, exporter.FileName(session.City, session.Month, session.Day))
		if err := exporter.SaveReport(path, s.stats.Report(ctx, session)); err != nil {
			s.logger.Error(ctx, "[CLI_EXPORT_ERROR] Failed to export report", logging.Fields{"path": path}, err)
			fmt.Fprintf(s.out, "Could not export report: %v\n", err)
		} else {
			fmt.Fprintf(s.out, "Report saved to %s\n", path)
		}
	}
	return nil
}

func (s *shell) askFilters() (city, month, day string, err error) {
	cities := s.trips.Cities()
	names := make([]string, len(cities))
	for i, c := range cities {
		names[i] = titleCase(c)
	}

	city, err = s.askValid(
		"Which city would you like to explore? "+strings.Join(names, ", "),
		"Invalid city, please try again",
		func(v string) bool {
			v = services.NormalizeCity(v)
			for _, c := range cities {
				if c == v {
					return true
				}
			}
			return false
		})
	if err != nil {
		return "", "", "", err
	}

	month, err = s.askValid(
		"Please input month: all, January, February, ... , December",
		"Invalid month, please try again",
		func(v string) bool { _, err := models.ParseMonth(v); return err == nil })
	if err != nil {
		return "", "", "", err
	}

	day, err = s.askValid(
		"Please input day: all, Monday, Tuesday, ... , Sunday",
		"Invalid day, please try again",
		func(v string) bool { _, err := models.ParseDay(v); return err == nil })
	if err != nil {
		return "", "", "", err
	}
	return city, month, day, nil
}

func (s *shell) askValid(question, retry string, valid func(string) bool) (string, error) {
	answer, err := s.in.ask(question)
	for err == nil && !valid(answer) {
		answer, err = s.in.ask(retry)
	}
	return answer, err
}

func (s *shell) took(elapsed time.Duration) {
	fmt.Fprintf(s.out, "\nThis took %.4f seconds.\n", elapsed.Seconds())
}

func (s *shell) showTime(ctx context.Context, session *services.Session) {
	fmt.Fprint(s.out, "\nCalculating The Most Frequent Times of Travel...\n\n")
	stats, elapsed, err := s.stats.TimeStats(ctx, session.Table)
	if err != nil {
		fmt.Fprintln(s.out, "No trips match the selected filters.")
		return
	}
	fmt.Fprintln(s.out, "The most common month is:", stats.MonthName)
	fmt.Fprintln(s.out, "The most common day of the week is:", stats.MostCommonDay)
	fmt.Fprintln(s.out, "The most common start hour is:", stats.HourLabel)
	s.took(elapsed)
}

func (s *shell) showStations(ctx context.Context, session *services.Session) {
	fmt.Fprint(s.out, "\nCalculating The Most Popular Stations and Trip...\n\n")
	stats, elapsed, err := s.stats.StationStats(ctx, session.Table)
	if err != nil {
		fmt.Fprintln(s.out, "No trips match the selected filters.")
		return
	}
	fmt.Fprintln(s.out, "The most commonly used start station is:", stats.MostCommonStartStation)
	fmt.Fprintln(s.out, "The most commonly used end station is:", stats.MostCommonEndStation)
	fmt.Fprintln(s.out, "The most frequent combination of start station and end station trip is:")
	fmt.Fprintln(s.out, "Start Station:", stats.MostCommonTrip.StartStation)
	fmt.Fprintln(s.out, "End Station:", stats.MostCommonTrip.EndStation)
	s.took(elapsed)
}

func (s *shell) showDuration(ctx context.Context, session *services.Session) {
	fmt.Fprint(s.out, "\nCalculating Trip Duration...\n\n")
	stats, elapsed := s.stats.DurationStats(ctx, session.Table)
	t, m := stats.Total, stats.Mean
	fmt.Fprintf(s.out, "The total travel time is: %d days, %d hours, %d minutes and %.2f seconds\n", t.Days, t.Hours, t.Minutes, t.Seconds)
	fmt.Fprintf(s.out, "The mean travel time is: %d minutes and %.2f seconds\n", m.Minutes, m.Seconds)
	s.took(elapsed)
}

func (s *shell) showUsers(ctx context.Context, session *services.Session) {
	fmt.Fprint(s.out, "\nCalculating User Stats...\n\n")
	stats, elapsed := s.stats.UserStats(ctx, session.Table)

	fmt.Fprintln(s.out, "Counts of user types:")
	s.printCounts(stats.UserTypes)

	if stats.Genders != nil {
		fmt.Fprintln(s.out, "Counts of gender:")
		s.printCounts(stats.Genders)
	}
	if by := stats.BirthYears; by != nil {
		fmt.Fprintln(s.out, "Earliest Birth Year:", by.Earliest)
		fmt.Fprintln(s.out, "Most Recent Birth Year:", by.MostRecent)
		fmt.Fprintln(s.out, "Most Common Birth Year:", by.MostCommon)
	}
	s.took(elapsed)
}

func (s *shell) printCounts(counts []services.ValueCount) {
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, vc := range counts {
		fmt.Fprintf(tw, "  %s\t%d\n", vc.Value, vc.Count)
	}
	tw.Flush()
}

// showRows pages through the filtered table five rows at a time
func (s *shell) showRows(session *services.Session) error {
	pager := session.Paginator
	question := "Would you like to see the first 5 rows of data? Yes or no"
	for {
		ok, err := s.in.yesNo(question)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		s.printRows(session.Table.Schema, pager.NextPage())
		if !pager.HasMore() {
			fmt.Fprintln(s.out, "No more rows to display.")
			break
		}
		question = "Would you like to see the next 5 rows of data? Yes or no"
	}
	fmt.Fprintln(s.out, "Thank you for using the data display feature.")
	return nil
}

func (s *shell) printRows(schema models.Schema, rows []*models.TripRecord) {
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	header := "Start Time\tEnd Time\tTrip Duration\tStart Station\tEnd Station\tUser Type"
	if schema.HasGender {
		header += "\tGender"
	}
	if schema.HasBirthYear {
		header += "\tBirth Year"
	}
	fmt.Fprintln(tw, header)

	for _, trip := range rows {
		line := fmt.Sprintf("%s\t%s\t%g\t%s\t%s\t%s",
			trip.StartTime.Format(time.DateTime),
			trip.EndTime.Format(time.DateTime),
			trip.TripDuration,
			trip.StartStation,
			trip.EndStation,
			trip.UserType,
		)
		if schema.HasGender {
			line += "\t" + optional(trip.Gender)
		}
		if schema.HasBirthYear {
			year := ""
			if trip.BirthYear != nil {
				year = fmt.Sprint(*trip.BirthYear)
			}
			line += "\t" + year
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()
}

func optional(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// titleCase capitalizes each word of a lower-case city name
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
