// Package importer decodes quiz documents and rejects them with one readable
// reason per violated rule.
package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"quizmaster/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type quizDoc struct {
	QuizID       string              `json:"quizId" validate:"notblank"`
	QuizTitle    string              `json:"quizTitle"`
	Questions    []questionDoc       `json:"questions" validate:"required,min=1,dive"`
	DummyAnswers map[string][]string `json:"dummyAnswers" validate:"omitempty,dive,dive,notblank"`
}

type questionDoc struct {
	ID            string          `json:"id"`
	Type          string          `json:"type" validate:"required,question_type"`
	Text          string          `json:"text" validate:"notblank"`
	CorrectAnswer json.RawMessage `json:"correctAnswer" validate:"required"`
	Explanation   *string         `json:"explanation" validate:"required"`
	Points        *int            `json:"points" validate:"omitempty,min=0"`
	Category      string          `json:"category"`
	Items         []string        `json:"items"`
	ItemsLeft     []string        `json:"items_left"`
	ItemsRight    []string        `json:"items_right"`
}

// Importer validates quiz documents.
type Importer struct {
	validate *validator.Validate
	log      logrus.FieldLogger
}

func New(log logrus.FieldLogger) *Importer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	v := validator.New()
	_ = v.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return domain.QuestionType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Importer{validate: v, log: log}
}

// DecodeFile reads and decodes a quiz document from disk.
func (im *Importer) DecodeFile(path string) (domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Quiz{}, err
	}
	return im.Decode(data)
}

// Decode parses a quiz document. Any rule violation returns domain.ValidationErrors.
// Questions without an id get "q_<quizId>_<index>"; a missing title falls back to the quiz id.
func (im *Importer) Decode(data []byte) (domain.Quiz, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.Quiz{}, domain.ValidationErrors{{Field: "quiz", Message: "must be a JSON object", Rule: "json"}}
	}

	var doc quizDoc
	var errs domain.ValidationErrors
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return domain.Quiz{}, domain.ValidationErrors{{Field: "quiz", Message: "invalid JSON: " + err.Error(), Rule: "json"}}
		}
		errs = append(errs, domain.ValidationError{
			Field:   typeErr.Field,
			Message: "must be a " + jsonKind(typeErr.Type),
			Value:   typeErr.Value,
			Rule:    "type",
		})
	}

	errs = append(errs, im.structErrors(doc)...)
	if len(errs) > 0 {
		return domain.Quiz{}, errs
	}

	quiz := domain.Quiz{
		ID:           doc.QuizID,
		Title:        doc.QuizTitle,
		DummyAnswers: doc.DummyAnswers,
		Questions:    make([]domain.Question, 0, len(doc.Questions)),
	}
	if strings.TrimSpace(quiz.Title) == "" {
		im.log.WithField("quiz_id", quiz.ID).Warn("quiz has no title, using its id")
		quiz.Title = quiz.ID
	}

	explicit := make(map[string]int)
	generated := make(map[int]bool)
	for i, qd := range doc.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		if qd.ID != "" {
			if first, dup := explicit[qd.ID]; dup {
				errs = append(errs, domain.ValidationError{
					Field:   field + ".id",
					Message: fmt.Sprintf("duplicates the id of questions[%d]", first),
					Value:   qd.ID,
					Rule:    "unique",
				})
			} else {
				explicit[qd.ID] = i
			}
		}

		raw := bytes.TrimSpace(qd.CorrectAnswer)
		if bytes.Equal(raw, []byte("null")) {
			errs = append(errs, domain.ValidationError{Field: field + ".correctAnswer", Message: "is required", Rule: "required"})
			continue
		}
		key, err := domain.DecodeAnswerKey(domain.QuestionType(qd.Type), raw)
		if err != nil {
			errs = append(errs, domain.ValidationError{Field: field + ".correctAnswer", Message: err.Error(), Rule: "type"})
			continue
		}

		q := domain.Question{
			ID:          qd.ID,
			Type:        domain.QuestionType(qd.Type),
			Text:        qd.Text,
			Answer:      key,
			Explanation: *qd.Explanation,
			Points:      qd.Points,
			Category:    qd.Category,
			Items:       qd.Items,
			ItemsLeft:   qd.ItemsLeft,
			ItemsRight:  qd.ItemsRight,
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q_%s_%d", quiz.ID, i)
			generated[len(quiz.Questions)] = true
		}
		errs = append(errs, checkAnswer(field, q)...)
		quiz.Questions = append(quiz.Questions, q)
	}

	errs = append(errs, checkGeneratedIDs(quiz.Questions, generated)...)
	if len(errs) > 0 {
		return domain.Quiz{}, errs
	}
	return quiz, nil
}

// Check validates an already decoded quiz, such as one loaded from storage.
func (im *Importer) Check(quiz domain.Quiz) error {
	doc := quizDoc{QuizID: quiz.ID, QuizTitle: quiz.Title, DummyAnswers: quiz.DummyAnswers}
	for _, q := range quiz.Questions {
		raw, err := json.Marshal(q)
		if err != nil {
			return err
		}
		var qd questionDoc
		if err := json.Unmarshal(raw, &qd); err != nil {
			return err
		}
		doc.Questions = append(doc.Questions, qd)
	}

	errs := im.structErrors(doc)
	seen := make(map[string]int)
	for i, q := range quiz.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		if q.ID == "" {
			errs = append(errs, domain.ValidationError{Field: field + ".id", Message: "is required", Rule: "required"})
		} else if first, dup := seen[q.ID]; dup {
			errs = append(errs, domain.ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicates the id of questions[%d]", first),
				Value:   q.ID,
				Rule:    "unique",
			})
		} else {
			seen[q.ID] = i
		}
		if q.Answer == nil {
			errs = append(errs, domain.ValidationError{Field: field + ".correctAnswer", Message: "is required", Rule: "required"})
			continue
		}
		if _, unknown := q.Answer.(domain.UnknownKey); unknown {
			continue
		}
		errs = append(errs, checkAnswer(field, q)...)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (im *Importer) structErrors(doc quizDoc) domain.ValidationErrors {
	err := im.validate.Struct(doc)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.ValidationErrors{{Field: "quiz", Message: err.Error()}}
	}
	out := make(domain.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, domain.ValidationError{
			Field:   fieldPath(fe.Namespace()),
			Message: errorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.Slice {
			return "is required and must not be empty"
		}
		return "is required"
	case "notblank":
		return "is required and must not be blank"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "question_type":
		names := make([]string, len(domain.QuestionTypes))
		for i, t := range domain.QuestionTypes {
			names[i] = string(t)
		}
		return "must be one of: " + strings.Join(names, ", ")
	default:
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int64, reflect.Int32:
		return "non-negative integer"
	case reflect.Slice:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return jsonKind(t.Elem())
	default:
		return t.Kind().String()
	}
}

// checkGeneratedIDs reports assigned ids that collide with another question's id.
// Collisions between two explicit ids are reported while decoding.
func checkGeneratedIDs(questions []domain.Question, generated map[int]bool) domain.ValidationErrors {
	var errs domain.ValidationErrors
	seen := make(map[string]int, len(questions))
	for i, q := range questions {
		first, dup := seen[q.ID]
		if !dup {
			seen[q.ID] = i
			continue
		}
		if generated[i] || generated[first] {
			errs = append(errs, domain.ValidationError{
				Field:   fmt.Sprintf("questions[%d].id", i),
				Message: fmt.Sprintf("collides with the id of questions[%d]", first),
				Value:   q.ID,
				Rule:    "unique",
			})
		}
	}
	return errs
}
