package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Response is a submitted answer. Its concrete type mirrors the question's AnswerKey.
type Response interface {
	response()
}

// BoolResponse answers a vrai_faux question.
type BoolResponse struct{ Value bool }

// TextResponse answers a qcm or texte_libre question.
type TextResponse struct{ Value string }

// SelectionResponse answers a qcm_multi question.
type SelectionResponse struct{ Values []string }

// OrderResponse answers an ordre question.
type OrderResponse struct{ Items []string }

// MatchResponse answers an association question. Assignments maps each right
// target to the left item dropped onto it.
type MatchResponse struct{ Assignments map[string]string }

// RawResponse carries an answer to a question of unsupported type.
type RawResponse struct{ Raw json.RawMessage }

func (BoolResponse) response()      {}
func (TextResponse) response()      {}
func (SelectionResponse) response() {}
func (OrderResponse) response()     {}
func (MatchResponse) response()     {}
func (RawResponse) response()       {}

func (r BoolResponse) MarshalJSON() ([]byte, error)      { return json.Marshal(r.Value) }
func (r TextResponse) MarshalJSON() ([]byte, error)      { return json.Marshal(r.Value) }
func (r SelectionResponse) MarshalJSON() ([]byte, error) { return json.Marshal(r.Values) }
func (r OrderResponse) MarshalJSON() ([]byte, error)     { return json.Marshal(r.Items) }
func (r MatchResponse) MarshalJSON() ([]byte, error)     { return json.Marshal(r.Assignments) }

func (r RawResponse) MarshalJSON() ([]byte, error) {
	if len(r.Raw) == 0 {
		return []byte("null"), nil
	}
	return r.Raw, nil
}

// DecodeResponse decodes a raw submitted value for a question of type t.
func DecodeResponse(t QuestionType, raw json.RawMessage) (Response, error) {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: missing value", ErrInvalidResponse)
	}
	switch t {
	case TypeBoolean:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: expected boolean", ErrInvalidResponse)
		}
		return BoolResponse{Value: v}, nil
	case TypeSingleChoice, TypeFreeText:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: expected string", ErrInvalidResponse)
		}
		return TextResponse{Value: v}, nil
	case TypeMultiChoice:
		var v []string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: expected array of strings", ErrInvalidResponse)
		}
		return SelectionResponse{Values: v}, nil
	case TypeReorder:
		var v []string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: expected array of strings", ErrInvalidResponse)
		}
		return OrderResponse{Items: v}, nil
	case TypeMatchPairs:
		var v map[string]string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: expected object of strings", ErrInvalidResponse)
		}
		return MatchResponse{Assignments: v}, nil
	default:
		return RawResponse{Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}
