// Package export writes a user's history and stats as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"quizmaster/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	AttemptsSheet = "Attempts"
	QuizzesSheet  = "Quizzes"
	SummarySheet  = "Summary"
)

var attemptHeaders = []string{
	"Date", "Quiz ID", "Quiz", "Mode", "Score", "Points", "Accuracy (%)",
	"Time", "Questions", "Max Streak", "Badges",
}

var quizHeaders = []string{
	"Quiz ID", "Attempts", "Questions Answered", "Correct", "Points",
	"Avg Accuracy (%)", "Best Score", "Best Points",
}

// WriteHistory writes attempts (newest first), per-quiz stats and a summary to w.
func WriteHistory(w io.Writer, history []domain.Attempt, stats domain.Stats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), AttemptsSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", AttemptsSheet, err)
	}

	attempts := append([]domain.Attempt(nil), history...)
	sort.SliceStable(attempts, func(i, j int) bool { return attempts[i].Date.After(attempts[j].Date) })
	rows := make([][]interface{}, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, []interface{}{
			a.Date.UTC().Format("2006-01-02 15:04:05"),
			a.QuizID,
			a.QuizTitle,
			string(a.Mode),
			a.Score,
			a.Points,
			a.Accuracy,
			a.TimeTaken,
			a.TotalQuestions,
			a.MaxStreak,
			strings.Join(a.Achievements, ", "),
		})
	}
	if err := writeTable(f, AttemptsSheet, attemptHeaders, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(QuizzesSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", QuizzesSheet, err)
	}
	ids := make([]string, 0, len(stats.Quizzes))
	for id := range stats.Quizzes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows = rows[:0]
	for _, id := range ids {
		qs := stats.Quizzes[id]
		rows = append(rows, []interface{}{
			id, qs.Attempts, qs.TotalQuestions, qs.CorrectAnswers, qs.TotalPoints,
			qs.AvgAccuracy, qs.BestScore, qs.BestPoints,
		})
	}
	if err := writeTable(f, QuizzesSheet, quizHeaders, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", SummarySheet, err)
	}
	summary := [][]interface{}{
		{"Total Quizzes", stats.TotalQuizzes},
		{"Total Answers", stats.TotalAnswers},
		{"Correct Answers", stats.CorrectAnswers},
		{"Total Points", stats.TotalPoints},
		{"Avg Accuracy (%)", stats.AvgAccuracy},
		{"Longest Streak", stats.LongestStreak},
		{"Level", stats.Level},
		{"XP", fmt.Sprintf("%d/%d", stats.XP, stats.XPNextLevel)},
		{"Badges", strings.Join(stats.Badges, ", ")},
	}
	if err := writeTable(f, SummarySheet, []string{"Metric", "Value"}, summary); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
