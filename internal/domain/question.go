package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// QuestionType identifies how a question is answered and scored.
type QuestionType string

const (
	TypeSingleChoice QuestionType = "qcm"
	TypeBoolean      QuestionType = "vrai_faux"
	TypeFreeText     QuestionType = "texte_libre"
	TypeMultiChoice  QuestionType = "qcm_multi"
	TypeReorder      QuestionType = "ordre"
	TypeMatchPairs   QuestionType = "association"
)

// QuestionTypes lists every supported type in declaration order.
var QuestionTypes = []QuestionType{
	TypeSingleChoice,
	TypeBoolean,
	TypeFreeText,
	TypeMultiChoice,
	TypeReorder,
	TypeMatchPairs,
}

// Valid reports whether t is one of the supported question types.
func (t QuestionType) Valid() bool {
	for _, known := range QuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DefaultPoints is awarded for a fully correct answer when a question has no explicit points.
const DefaultPoints = 10

// GlobalCategory tags distractor pool entries usable by any question.
const GlobalCategory = "Global"

// Question is a single quiz item. Answer carries the type-specific correctAnswer.
type Question struct {
	ID          string       `json:"id,omitempty"`
	Type        QuestionType `json:"type"`
	Text        string       `json:"text"`
	Answer      AnswerKey    `json:"-"`
	Explanation string       `json:"explanation"`
	Points      *int         `json:"points,omitempty"`
	Category    string       `json:"category,omitempty"`
	Items       []string     `json:"items,omitempty"`
	ItemsLeft   []string     `json:"items_left,omitempty"`
	ItemsRight  []string     `json:"items_right,omitempty"`
}

// PointValue returns the points awarded for a fully correct answer.
func (q Question) PointValue() int {
	if q.Points == nil {
		return DefaultPoints
	}
	return *q.Points
}

type questionJSON struct {
	ID            string          `json:"id,omitempty"`
	Type          QuestionType    `json:"type"`
	Text          string          `json:"text"`
	CorrectAnswer json.RawMessage `json:"correctAnswer"`
	Explanation   string          `json:"explanation"`
	Points        *int            `json:"points,omitempty"`
	Category      string          `json:"category,omitempty"`
	Items         []string        `json:"items,omitempty"`
	ItemsLeft     []string        `json:"items_left,omitempty"`
	ItemsRight    []string        `json:"items_right,omitempty"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	raw, err := marshalAnswerKey(q.Answer)
	if err != nil {
		return nil, err
	}
	return json.Marshal(questionJSON{
		ID:            q.ID,
		Type:          q.Type,
		Text:          q.Text,
		CorrectAnswer: raw,
		Explanation:   q.Explanation,
		Points:        q.Points,
		Category:      q.Category,
		Items:         q.Items,
		ItemsLeft:     q.ItemsLeft,
		ItemsRight:    q.ItemsRight,
	})
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	key, err := DecodeAnswerKey(raw.Type, raw.CorrectAnswer)
	if err != nil {
		return fmt.Errorf("question %q: %w", raw.ID, err)
	}
	*q = Question{
		ID:          raw.ID,
		Type:        raw.Type,
		Text:        raw.Text,
		Answer:      key,
		Explanation: raw.Explanation,
		Points:      raw.Points,
		Category:    raw.Category,
		Items:       raw.Items,
		ItemsLeft:   raw.ItemsLeft,
		ItemsRight:  raw.ItemsRight,
	}
	return nil
}

// AnswerKey is the correct answer of a question. The concrete type is fixed by
// the question type.
type AnswerKey interface {
	answerKey()
}

// BooleanKey answers a vrai_faux question.
type BooleanKey struct{ Value bool }

// ChoiceKey answers a qcm question.
type ChoiceKey struct{ Value string }

// TextKey answers a texte_libre question.
type TextKey struct{ Value string }

// MultiChoiceKey answers a qcm_multi question.
type MultiChoiceKey struct{ Values []string }

// SequenceKey answers an ordre question.
type SequenceKey struct{ Items []string }

// PairingKey answers an association question, left item to right target.
type PairingKey struct{ Pairs map[string]string }

// UnknownKey keeps the raw correctAnswer of a question whose type is not supported.
type UnknownKey struct{ Raw json.RawMessage }

func (BooleanKey) answerKey()     {}
func (ChoiceKey) answerKey()      {}
func (TextKey) answerKey()        {}
func (MultiChoiceKey) answerKey() {}
func (SequenceKey) answerKey()    {}
func (PairingKey) answerKey()     {}
func (UnknownKey) answerKey()     {}

// DecodeAnswerKey decodes a raw correctAnswer according to the question type.
func DecodeAnswerKey(t QuestionType, raw json.RawMessage) (AnswerKey, error) {
	switch t {
	case TypeBoolean:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("correctAnswer for %s must be a boolean", t)
		}
		return BooleanKey{Value: v}, nil
	case TypeSingleChoice:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("correctAnswer for %s must be a string", t)
		}
		return ChoiceKey{Value: v}, nil
	case TypeFreeText:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("correctAnswer for %s must be a string", t)
		}
		return TextKey{Value: v}, nil
	case TypeMultiChoice:
		var v []string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("correctAnswer for %s must be an array of strings", t)
		}
		return MultiChoiceKey{Values: v}, nil
	case TypeReorder:
		var v []string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("correctAnswer for %s must be an array of strings", t)
		}
		return SequenceKey{Items: v}, nil
	case TypeMatchPairs:
		var v map[string]string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("correctAnswer for %s must be an object of strings", t)
		}
		return PairingKey{Pairs: v}, nil
	default:
		return UnknownKey{Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}

func marshalAnswerKey(key AnswerKey) (json.RawMessage, error) {
	switch k := key.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case BooleanKey:
		return json.Marshal(k.Value)
	case ChoiceKey:
		return json.Marshal(k.Value)
	case TextKey:
		return json.Marshal(k.Value)
	case MultiChoiceKey:
		return json.Marshal(k.Values)
	case SequenceKey:
		return json.Marshal(k.Items)
	case PairingKey:
		return json.Marshal(k.Pairs)
	case UnknownKey:
		if len(k.Raw) == 0 {
			return json.RawMessage("null"), nil
		}
		return k.Raw, nil
	default:
		return nil, fmt.Errorf("unsupported answer key %T", key)
	}
}

// FormatAnswerKey renders a correct answer for feedback display.
func FormatAnswerKey(key AnswerKey) string {
	switch k := key.(type) {
	case BooleanKey:
		return strconv.FormatBool(k.Value)
	case ChoiceKey:
		return k.Value
	case TextKey:
		return k.Value
	case MultiChoiceKey:
		return strings.Join(k.Values, ", ")
	case SequenceKey:
		return strings.Join(k.Items, " > ")
	case PairingKey:
		lefts := make([]string, 0, len(k.Pairs))
		for left := range k.Pairs {
			lefts = append(lefts, left)
		}
		sort.Strings(lefts)
		parts := make([]string, 0, len(lefts))
		for _, left := range lefts {
			parts = append(parts, left+" = "+k.Pairs[left])
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}
