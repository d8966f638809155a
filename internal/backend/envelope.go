package backend

import (
	"encoding/json"
	"strconv"
	"strings"
)

// envelope matches every wrapper shape the backend has been observed using.
// The serializer behind some endpoints preserves references, wrapping arrays
// in {$id, $values}; others use {isSuccess, message, data}; a few return the
// resource bare.
type envelope struct {
	RefID     string          `json:"$id"`
	IsSuccess *bool           `json:"isSuccess"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Values    json.RawMessage `json:"$values"`
}

// DecodeList normalizes a list response into its raw items. Variants are
// tried first-match-wins:
//
//  1. {isSuccess, data: {$values: [...]}}
//  2. {$id, $values: [...]}
//  3. bare array
//  4. {isSuccess, data: [...]}
//
// Anything else normalizes to an empty list; DecodeList never fails.
func DecodeList(raw []byte) []json.RawMessage {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if len(env.Data) > 0 {
			var nested struct {
				Values []json.RawMessage `json:"$values"`
			}
			if err := json.Unmarshal(env.Data, &nested); err == nil && nested.Values != nil {
				return nested.Values
			}
		}
		if env.Values != nil {
			var items []json.RawMessage
			if err := json.Unmarshal(env.Values, &items); err == nil {
				return items
			}
		}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		return items
	}

	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &items); err == nil && items != nil {
			return items
		}
	}

	return []json.RawMessage{}
}

// DecodeObject unwraps a single-resource response: {isSuccess, data: {...}}
// when present, otherwise the bare object itself. ok is false when the
// response is a well-formed failure envelope or not an object at all.
func DecodeObject(raw []byte) (json.RawMessage, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false
	}
	if env.IsSuccess != nil && !*env.IsSuccess {
		return nil, false
	}
	if len(env.Data) > 0 && env.Data[0] == '{' {
		return env.Data, true
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		return json.RawMessage(trimmed), true
	}
	return nil, false
}

// flexString keeps identifiers opaque: numeric ids arrive as JSON numbers
// from some endpoints and must not round-trip through float64.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err == nil {
		*s = flexString(v)
		return nil
	}
	token := strings.TrimSpace(string(b))
	if token == "null" {
		*s = ""
		return nil
	}
	*s = flexString(token)
	return nil
}

// flexFloat accepts numbers, numeric strings and null; anything unparseable
// normalizes to zero rather than failing the whole decode.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	token := strings.TrimSpace(string(b))
	token = strings.Trim(token, `"`)
	if token == "" || token == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

type flexInt int

func (i *flexInt) UnmarshalJSON(b []byte) error {
	var f flexFloat
	if err := f.UnmarshalJSON(b); err != nil {
		return err
	}
	*i = flexInt(f)
	return nil
}
