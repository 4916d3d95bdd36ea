// Package distractor builds plausible wrong options for choice questions.
package distractor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"quizmaster/internal/domain"

	"github.com/agnivade/levenshtein"
)

// Count is the number of distractors returned by Generate.
const Count = 3

// Source priorities, best first.
const (
	sourceOwnCategoryPool = iota + 1
	sourceGlobalPool
	sourceSameCategoryAnswers
	sourceOtherCategoryAnswers
	sourceOtherCategoryPool
)

// Format is a coarse shape of an answer used to prefer look-alike distractors.
type Format string

const (
	FormatNumber  Format = "number"
	FormatDate    Format = "date"
	FormatShort   Format = "short"
	FormatGeneral Format = "general"
)

var (
	numberPattern   = regexp.MustCompile(`^\d+([.,]\d+)?$`)
	dayFirstPattern = regexp.MustCompile(`^\d{1,2}[/-]\d{1,2}[/-]\d{2,4}$`)
	isoDatePattern  = regexp.MustCompile(`^\d{4}[/-]\d{1,2}[/-]\d{1,2}$`)
)

// Classify returns the format of an answer.
func Classify(answer string) Format {
	s := strings.TrimSpace(answer)
	switch {
	case numberPattern.MatchString(s):
		return FormatNumber
	case dayFirstPattern.MatchString(s), isoDatePattern.MatchString(s):
		return FormatDate
	case len(strings.Fields(s)) <= 3:
		return FormatShort
	default:
		return FormatGeneral
	}
}

type candidate struct {
	text        string
	lower       string
	priority    int
	formatMatch bool
	distance    int
	lengthDiff  int
}

// Generate returns exactly Count wrong options for q, ranked by source, format,
// edit distance and length. excluded adds answers that must never be offered.
func Generate(q domain.Question, all []domain.Question, pool map[string][]string, excluded []string) []string {
	correct := CorrectTexts(q.Answer)
	blocked := make(map[string]struct{}, len(correct)+len(excluded))
	for _, c := range correct {
		blocked[strings.ToLower(c)] = struct{}{}
	}
	for _, e := range excluded {
		blocked[strings.ToLower(e)] = struct{}{}
	}

	primary := ""
	if len(correct) > 0 {
		primary = correct[0]
	}
	primaryLower := strings.ToLower(primary)
	targetFormat := Classify(primary)
	targetLength := utf8.RuneCountInString(primary)

	var candidates []candidate
	add := func(text string, priority int) {
		lower := strings.ToLower(text)
		if strings.TrimSpace(text) == "" {
			return
		}
		if _, ok := blocked[lower]; ok {
			return
		}
		candidates = append(candidates, candidate{
			text:        text,
			lower:       lower,
			priority:    priority,
			formatMatch: Classify(text) == targetFormat,
			distance:    levenshtein.ComputeDistance(primaryLower, lower),
			lengthDiff:  abs(utf8.RuneCountInString(text) - targetLength),
		})
	}

	if q.Category != "" {
		for _, d := range pool[q.Category] {
			add(d, sourceOwnCategoryPool)
		}
	}
	for _, d := range pool[domain.GlobalCategory] {
		add(d, sourceGlobalPool)
	}
	for _, other := range all {
		if other.ID == q.ID || other.Category != q.Category {
			continue
		}
		for _, text := range CorrectTexts(other.Answer) {
			add(text, sourceSameCategoryAnswers)
		}
	}
	for _, other := range all {
		if other.ID == q.ID || other.Category == q.Category {
			continue
		}
		for _, text := range CorrectTexts(other.Answer) {
			add(text, sourceOtherCategoryAnswers)
		}
	}
	categories := make([]string, 0, len(pool))
	for category := range pool {
		if category == q.Category || category == domain.GlobalCategory {
			continue
		}
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		for _, d := range pool[category] {
			add(d, sourceOtherCategoryPool)
		}
	}

	unique := dedupe(candidates)
	idealMax := targetLength / 2
	if idealMax < 5 {
		idealMax = 5
	}
	ideal := func(c candidate) bool { return c.distance >= 1 && c.distance <= idealMax }

	sort.SliceStable(unique, func(i, j int) bool {
		a, b := unique[i], unique[j]
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		if a.formatMatch != b.formatMatch {
			return a.formatMatch
		}
		if ideal(a) != ideal(b) {
			return ideal(a)
		}
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.lengthDiff != b.lengthDiff {
			return a.lengthDiff < b.lengthDiff
		}
		return a.lower < b.lower
	})

	out := make([]string, 0, Count)
	taken := make(map[string]struct{}, Count)
	for _, c := range unique {
		if len(out) == Count {
			break
		}
		out = append(out, c.text)
		taken[c.lower] = struct{}{}
	}
	for n := 1; len(out) < Count; n++ {
		placeholder := fmt.Sprintf("Other answer %d", n)
		lower := strings.ToLower(placeholder)
		if _, ok := blocked[lower]; ok {
			continue
		}
		if _, ok := taken[lower]; ok {
			continue
		}
		out = append(out, placeholder)
		taken[lower] = struct{}{}
	}
	return out
}

// CorrectTexts flattens the string parts of a correct answer. Booleans and
// pairings carry no usable option text.
func CorrectTexts(key domain.AnswerKey) []string {
	switch k := key.(type) {
	case domain.ChoiceKey:
		return []string{k.Value}
	case domain.TextKey:
		return []string{k.Value}
	case domain.MultiChoiceKey:
		return k.Values
	case domain.SequenceKey:
		return k.Items
	default:
		return nil
	}
}

func dedupe(candidates []candidate) []candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.lower]; ok {
			continue
		}
		seen[c.lower] = struct{}{}
		out = append(out, c)
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
