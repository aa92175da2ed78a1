// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Institute of the Czech National Corpus,
//                Faculty of Arts, Charles University
//   This file is part of KORPEXPORT.
//
//  KORPEXPORT is free software: you can redistribute it and/or modify
//  it under the terms of the GNU General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  KORPEXPORT is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU General Public License for more details.
//
//  You should have received a copy of the GNU General Public License
//  along with KORPEXPORT.  If not, see <https://www.gnu.org/licenses/>.

package kwic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Attr is a single name-value pair of a token (positional attribute)
// or of a sentence (structural attribute). Null marks values which
// came as JSON `null` so they can be written back unchanged.
type Attr struct {
	Name  string
	Value string
	Null  bool
}

func (a Attr) jsonValue() any {
	if a.Null {
		return nil
	}
	return a.Value
}

// ---------------------------

type TokenStructs struct {
	Open  []string `json:"open,omitempty"`
	Close []string `json:"close,omitempty"`
}

// Token represents a single corpus position with its attributes
// kept in the order they came from the backend.
type Token struct {
	Attrs   []Attr
	Structs *TokenStructs
}

func (t *Token) UnmarshalJSON(data []byte) error {
	t.Attrs = t.Attrs[:0]
	t.Structs = nil
	return decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		if key == "structs" {
			if string(raw) == "null" {
				return nil
			}
			var structs TokenStructs
			if err := json.Unmarshal(raw, &structs); err != nil {
				return fmt.Errorf("failed to decode token structs: %w", err)
			}
			t.Structs = &structs
			return nil
		}
		attr, err := rawToAttr(key, raw)
		if err != nil {
			return err
		}
		t.Attrs = append(t.Attrs, attr)
		return nil
	})
}

func (t Token) MarshalJSON() ([]byte, error) {
	var buff bytes.Buffer
	buff.WriteByte('{')
	for i, attr := range t.Attrs {
		if i > 0 {
			buff.WriteByte(',')
		}
		if err := writeJSONKeyValue(&buff, attr.Name, attr.jsonValue()); err != nil {
			return nil, err
		}
	}
	if t.Structs != nil {
		if len(t.Attrs) > 0 {
			buff.WriteByte(',')
		}
		if err := writeJSONKeyValue(&buff, "structs", t.Structs); err != nil {
			return nil, err
		}
	}
	buff.WriteByte('}')
	return buff.Bytes(), nil
}

// ---------------------------

type Match struct {
	Start    int `json:"start"`
	End      int `json:"end"`
	Position int `json:"position"`
}

// ---------------------------

// Sentence is a single KWIC line (a hit) of a query result.
type Sentence struct {
	Corpus     string
	Tokens     []Token
	Match      *Match
	Structs    []Attr
	Aligned    map[string][]Token
	CorpusInfo map[string]any

	// Extra contains keys we do not interpret but still want
	// to pass through to the JSON output.
	Extra []RawAttr
}

type RawAttr struct {
	Name  string
	Value json.RawMessage
}

func (s *Sentence) UnmarshalJSON(data []byte) error {
	*s = Sentence{}
	return decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		var err error
		switch key {
		case "corpus":
			err = json.Unmarshal(raw, &s.Corpus)
		case "tokens":
			err = json.Unmarshal(raw, &s.Tokens)
		case "match":
			s.Match, err = decodeMatch(raw)
		case "structs":
			err = decodeOrderedObject(raw, func(k string, v json.RawMessage) error {
				attr, err := rawToAttr(k, v)
				if err != nil {
					return err
				}
				s.Structs = append(s.Structs, attr)
				return nil
			})
		case "aligned":
			err = json.Unmarshal(raw, &s.Aligned)
		case "corpus_info":
			err = json.Unmarshal(raw, &s.CorpusInfo)
		default:
			s.Extra = append(s.Extra, RawAttr{Name: key, Value: append(json.RawMessage{}, raw...)})
		}
		if err != nil {
			return fmt.Errorf("failed to decode sentence key %s: %w", key, err)
		}
		return nil
	})
}

func (s Sentence) MarshalJSON() ([]byte, error) {
	var buff bytes.Buffer
	buff.WriteByte('{')
	if s.Structs != nil {
		buff.WriteString(`"structs":{`)
		for i, attr := range s.Structs {
			if i > 0 {
				buff.WriteByte(',')
			}
			if err := writeJSONKeyValue(&buff, attr.Name, attr.jsonValue()); err != nil {
				return nil, err
			}
		}
		buff.WriteString("},")
	}
	tokens := s.Tokens
	if tokens == nil {
		tokens = []Token{}
	}
	if err := writeJSONKeyValue(&buff, "tokens", tokens); err != nil {
		return nil, err
	}
	if s.Match != nil {
		buff.WriteByte(',')
		if err := writeJSONKeyValue(&buff, "match", s.Match); err != nil {
			return nil, err
		}
	}
	buff.WriteByte(',')
	if err := writeJSONKeyValue(&buff, "corpus", s.Corpus); err != nil {
		return nil, err
	}
	if s.Aligned != nil {
		buff.WriteString(`,"aligned":{`)
		for i, item := range s.AlignedSentences() {
			if i > 0 {
				buff.WriteByte(',')
			}
			if err := writeJSONKeyValue(&buff, item.Key, item.Tokens); err != nil {
				return nil, err
			}
		}
		buff.WriteByte('}')
	}
	if s.CorpusInfo != nil {
		buff.WriteByte(',')
		if err := writeJSONKeyValue(&buff, "corpus_info", s.CorpusInfo); err != nil {
			return nil, err
		}
	}
	for _, extra := range s.Extra {
		buff.WriteByte(',')
		if err := writeJSONKeyValue(&buff, extra.Name, extra.Value); err != nil {
			return nil, err
		}
	}
	buff.WriteByte('}')
	return buff.Bytes(), nil
}

// ---------------------------

type BackendError struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (err *BackendError) Error() string {
	return fmt.Sprintf("%s: %s", err.Type, err.Value)
}

// Result is a Korp query result as returned by the `query`
// command of the backend.
type Result struct {
	Sentences  []*Sentence     `json:"kwic"`
	Hits       int             `json:"hits"`
	CorpusHits map[string]int  `json:"corpus_hits,omitempty"`
	Error      *BackendError   `json:"ERROR,omitempty"`
	Time       json.RawMessage `json:"time,omitempty"`
}

// DecodeResult parses raw backend output into a Result.
func DecodeResult(data []byte) (*Result, error) {
	var ans Result
	if err := json.Unmarshal(data, &ans); err != nil {
		return nil, fmt.Errorf("failed to decode query result: %w", err)
	}
	return &ans, nil
}

// ---------------------------

func decodeMatch(raw json.RawMessage) (*Match, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var items []Match
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, nil
		}
		return &items[0], nil
	}
	var m Match
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func rawToAttr(key string, raw json.RawMessage) (Attr, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return Attr{Name: key, Null: true}, nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Attr{}, fmt.Errorf("failed to decode attribute %s: %w", key, err)
		}
		return Attr{Name: key, Value: s}, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return Attr{}, fmt.Errorf("failed to decode attribute %s: %w", key, err)
		}
		return Attr{Name: key, Value: strconv.FormatBool(b)}, nil
	default:
		return Attr{Name: key, Value: string(trimmed)}, nil
	}
}

// decodeOrderedObject walks a JSON object and calls fn for each
// key in the order the keys appear in data.
func decodeOrderedObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("invalid object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

func writeJSONKeyValue(buff *bytes.Buffer, key string, value any) error {
	k, err := marshalNoEscape(key)
	if err != nil {
		return err
	}
	buff.Write(k)
	buff.WriteByte(':')
	v, err := marshalNoEscape(value)
	if err != nil {
		return err
	}
	buff.Write(v)
	return nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buff bytes.Buffer
	enc := json.NewEncoder(&buff)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buff.Bytes(), "\n"), nil
}

// MarshalSentences writes the sentence list as JSON, without
// HTML escaping.
func MarshalSentences(sentences []*Sentence) ([]byte, error) {
	if sentences == nil {
		sentences = []*Sentence{}
	}
	return marshalNoEscape(sentences)
}

func sortedKeys[T any](m map[string]T) []string {
	ans := make([]string, 0, len(m))
	for k := range m {
		ans = append(ans, k)
	}
	sort.Strings(ans)
	return ans
}
