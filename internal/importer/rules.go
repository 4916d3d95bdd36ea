package importer

import (
	"fmt"
	"sort"
	"strings"

	"quizmaster/internal/domain"
)

// checkAnswer applies the type-specific rules to a decoded question.
func checkAnswer(field string, q domain.Question) domain.ValidationErrors {
	var errs domain.ValidationErrors
	fail := func(sub, rule, msg string, value interface{}) {
		errs = append(errs, domain.ValidationError{Field: field + "." + sub, Message: msg, Value: value, Rule: rule})
	}

	switch key := q.Answer.(type) {
	case domain.BooleanKey:
	case domain.ChoiceKey:
		if blank(key.Value) {
			fail("correctAnswer", "notblank", "must be a non-empty string", key.Value)
		}
	case domain.TextKey:
		if blank(key.Value) {
			fail("correctAnswer", "notblank", "must be a non-empty string", key.Value)
		}
	case domain.MultiChoiceKey:
		if len(key.Values) == 0 {
			fail("correctAnswer", "min", "must contain at least 1 item(s)", nil)
		} else if i := firstBlank(key.Values); i >= 0 {
			fail(fmt.Sprintf("correctAnswer[%d]", i), "notblank", "must be a non-empty string", key.Values[i])
		}
	case domain.SequenceKey:
		if len(q.Items) < 2 {
			fail("items", "min", "must contain at least 2 item(s)", len(q.Items))
			break
		}
		if i := firstBlank(q.Items); i >= 0 {
			fail(fmt.Sprintf("items[%d]", i), "notblank", "must be a non-empty string", q.Items[i])
			break
		}
		if len(key.Items) != len(q.Items) {
			fail("correctAnswer", "len", fmt.Sprintf("must contain exactly %d item(s), like items", len(q.Items)), len(key.Items))
			break
		}
		if !isPermutation(key.Items, q.Items) {
			fail("correctAnswer", "permutation", "must be a permutation of items", key.Items)
			break
		}
		if i := firstBlank(key.Items); i >= 0 {
			fail(fmt.Sprintf("correctAnswer[%d]", i), "notblank", "must be a non-empty string", key.Items[i])
		}
	case domain.PairingKey:
		if len(q.ItemsLeft) == 0 {
			fail("items_left", "min", "must contain at least 1 item(s)", nil)
			break
		}
		if i := firstBlank(q.ItemsLeft); i >= 0 {
			fail(fmt.Sprintf("items_left[%d]", i), "notblank", "must be a non-empty string", q.ItemsLeft[i])
			break
		}
		if len(q.ItemsRight) != len(q.ItemsLeft) {
			fail("items_right", "len", fmt.Sprintf("must contain exactly %d item(s), like items_left", len(q.ItemsLeft)), len(q.ItemsRight))
			break
		}
		if i := firstBlank(q.ItemsRight); i >= 0 {
			fail(fmt.Sprintf("items_right[%d]", i), "notblank", "must be a non-empty string", q.ItemsRight[i])
			break
		}
		if len(key.Pairs) != len(q.ItemsLeft) {
			fail("correctAnswer", "len", fmt.Sprintf("must map each of the %d items_left entries", len(q.ItemsLeft)), len(key.Pairs))
			break
		}
		left := toSet(q.ItemsLeft)
		right := toSet(q.ItemsRight)
		target := make(map[string]string, len(key.Pairs))
		for _, l := range sortedKeys(key.Pairs) {
			r := key.Pairs[l]
			if _, ok := left[l]; !ok {
				fail("correctAnswer", "oneof", fmt.Sprintf("key %q is not in items_left", l), l)
				continue
			}
			if _, ok := right[r]; !ok || blank(r) {
				fail("correctAnswer", "oneof", fmt.Sprintf("value %q for key %q is not in items_right", r, l), r)
				continue
			}
			if prev, ok := target[r]; ok {
				fail("correctAnswer", "unique", fmt.Sprintf("value %q is used by both %q and %q", r, prev, l), r)
				continue
			}
			target[r] = l
		}
	}
	return errs
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func firstBlank(values []string) int {
	for i, v := range values {
		if blank(v) {
			return i
		}
	}
	return -1
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// isPermutation reports whether a and b hold the same elements with the same counts.
func isPermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		if counts[v] == 0 {
			return false
		}
		counts[v]--
	}
	return true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
