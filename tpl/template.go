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

package tpl

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type segment struct {
	literal string
	ref     *fieldRef
}

type fieldRef struct {
	name string
	path []string
	// precision limits the number of characters of the value;
	// -1 means no limit
	precision int
}

// Template is a parsed format string with `{name}` substitution
// points. Nested values can be referenced as `{name.key}` or
// `{name[key]}`, `{{` and `}}` produce literal braces and
// a `:.N` suffix truncates the value to N characters.
type Template struct {
	source   string
	segments []segment
}

func (t *Template) Source() string {
	return t.source
}

// FieldNames returns top-level names of all the referenced fields
// in the order of their appearance.
func (t *Template) FieldNames() []string {
	ans := make([]string, 0, len(t.segments))
	for _, seg := range t.segments {
		if seg.ref != nil {
			ans = append(ans, seg.ref.name)
		}
	}
	return ans
}

// References tests whether the template references a field
func (t *Template) References(name string) bool {
	for _, seg := range t.segments {
		if seg.ref != nil && seg.ref.name == name {
			return true
		}
	}
	return false
}

// Parse parses the template source. Unbalanced braces
// and empty field names are reported as errors.
func Parse(src string) (*Template, error) {
	ans := &Template{source: src}
	var lit strings.Builder
	flushLit := func() {
		if lit.Len() > 0 {
			ans.segments = append(ans.segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '{':
			if i+1 < len(src) && src[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(src[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unclosed '{' at position %d in template %q", i, src)
			}
			body := src[i+1 : i+1+end]
			if strings.IndexByte(body, '{') >= 0 {
				return nil, fmt.Errorf("unexpected '{' in field at position %d in template %q", i, src)
			}
			ref, err := parseFieldRef(body)
			if err != nil {
				return nil, fmt.Errorf("invalid field at position %d in template %q: %w", i, src, err)
			}
			flushLit()
			ans.segments = append(ans.segments, segment{ref: ref})
			i += end + 1
		case '}':
			if i+1 < len(src) && src[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("single '}' at position %d in template %q", i, src)
		default:
			lit.WriteByte(c)
		}
	}
	flushLit()
	return ans, nil
}

func parseFieldRef(body string) (*fieldRef, error) {
	spec := ""
	if idx := strings.IndexAny(body, ":!"); idx >= 0 {
		spec = body[idx:]
		body = body[:idx]
		if strings.HasPrefix(spec, "!") {
			// conversion flags (`!s`, `!r`) are not supported
			_, spec, _ = strings.Cut(spec, ":")

		} else {
			spec = spec[1:]
		}
	}
	ans := &fieldRef{precision: -1}
	name := body
	if idx := strings.IndexAny(body, ".["); idx >= 0 {
		name = body[:idx]
		rest := body[idx:]
		for len(rest) > 0 {
			switch rest[0] {
			case '.':
				rest = rest[1:]
				next := strings.IndexAny(rest, ".[")
				if next < 0 {
					next = len(rest)
				}
				if next == 0 {
					return nil, fmt.Errorf("empty attribute in %q", body)
				}
				ans.path = append(ans.path, rest[:next])
				rest = rest[next:]
			case '[':
				closing := strings.IndexByte(rest, ']')
				if closing < 0 {
					return nil, fmt.Errorf("missing ']' in %q", body)
				}
				ans.path = append(ans.path, rest[1:closing])
				rest = rest[closing+1:]
			default:
				return nil, fmt.Errorf("unexpected characters in %q", body)
			}
		}
	}
	if name == "" {
		return nil, fmt.Errorf("empty field name")
	}
	ans.name = name
	if p, ok := parsePrecision(spec); ok {
		ans.precision = p
	}
	return ans, nil
}

// parsePrecision extracts N from a format spec of the form `.N`
// (optionally followed by a type letter `s`). Other specs
// are ignored.
func parsePrecision(spec string) (int, bool) {
	if !strings.HasPrefix(spec, ".") {
		return 0, false
	}
	spec = strings.TrimSuffix(spec[1:], "s")
	v, err := strconv.Atoi(spec)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// Execute fills the template with fields. Missing fields
// and nil values are replaced by the placeholder.
func (t *Template) Execute(fields Fields, placeholder string) string {
	var ans strings.Builder
	for _, seg := range t.segments {
		if seg.ref == nil {
			ans.WriteString(seg.literal)
			continue
		}
		ans.WriteString(seg.ref.resolve(fields, placeholder))
	}
	return ans.String()
}

func (ref *fieldRef) resolve(fields Fields, placeholder string) string {
	f, ok := fields[ref.name]
	if !ok {
		return placeholder
	}
	v := f.Value()
	for _, key := range ref.path {
		var found bool
		v, found = lookupKey(v, key)
		if !found {
			return placeholder
		}
	}
	if v == nil {
		return placeholder
	}
	s := Stringify(v, placeholder)
	if ref.precision >= 0 && utf8.RuneCountInString(s) > ref.precision {
		s = string([]rune(s)[:ref.precision])
	}
	return s
}

func lookupKey(v any, key string) (any, bool) {
	switch tv := v.(type) {
	case Fields:
		f, ok := tv[key]
		if !ok {
			return nil, false
		}
		return f.Value(), true
	case map[string]string:
		val, ok := tv[key]
		return val, ok
	case map[string]any:
		val, ok := tv[key]
		if f, isField := val.(Field); isField {
			return f.Value(), ok
		}
		return val, ok
	case map[string]int:
		val, ok := tv[key]
		return val, ok
	case []string:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(tv) {
			return nil, false
		}
		return tv[idx], true
	default:
		return nil, false
	}
}

// Stringify converts a field value to its textual representation.
func Stringify(v any, placeholder string) string {
	switch tv := v.(type) {
	case nil:
		return placeholder
	case string:
		return tv
	case Field:
		return Stringify(tv.Value(), placeholder)
	case func() any:
		return Stringify(tv(), placeholder)
	case func() string:
		return tv()
	case int:
		return strconv.Itoa(tv)
	case int64:
		return strconv.FormatInt(tv, 10)
	case int32:
		return strconv.FormatInt(int64(tv), 10)
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case json.Number:
		return tv.String()
	case bool:
		if tv {
			return "True"
		}
		return "False"
	case fmt.Stringer:
		return tv.String()
	default:
		return fmt.Sprint(tv)
	}
}
