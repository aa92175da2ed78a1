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

// Field is a value available for substitution in a template.
// A lazy field is computed only when a template actually
// references it.
type Field struct {
	value any
	lazy  func() any
}

// Value returns the field value. For lazy fields, the value
// is computed on each call.
func (f Field) Value() any {
	if f.lazy != nil {
		return f.lazy()
	}
	return f.value
}

func (f Field) IsLazy() bool {
	return f.lazy != nil
}

// Eager creates a field with an already known value.
func Eager(v any) Field {
	if fv, ok := v.(Field); ok {
		return fv
	}
	return Field{value: v}
}

// Lazy creates a field whose value is computed by fn
// on each reference.
func Lazy(fn func() any) Field {
	return Field{lazy: fn}
}

// LazyStr is a convenience variant of Lazy for string values.
func LazyStr(fn func() string) Field {
	return Field{lazy: func() any { return fn() }}
}

// ---------------------------

// Fields is a set of named template fields.
type Fields map[string]Field

// Get returns the field value or nil when the field is missing.
func (fs Fields) Get(name string) any {
	f, ok := fs[name]
	if !ok {
		return nil
	}
	return f.Value()
}

// Has tests whether the field is defined
func (fs Fields) Has(name string) bool {
	_, ok := fs[name]
	return ok
}

// Str returns a string representation of the field value.
// Missing fields and nil values are returned as an empty string.
func (fs Fields) Str(name string) string {
	v := fs.Get(name)
	if v == nil {
		return ""
	}
	return Stringify(v, "")
}

// Int returns the field value as an int. The second return value
// is false when the field is missing or it is not an integer.
func (fs Fields) Int(name string) (int, bool) {
	switch tv := fs.Get(name).(type) {
	case int:
		return tv, true
	case int64:
		return int(tv), true
	case int32:
		return int(tv), true
	default:
		return 0, false
	}
}

// Set stores an eager value (or a Field as it is).
func (fs Fields) Set(name string, v any) {
	fs[name] = Eager(v)
}

// Clone returns a shallow copy of the fields
func (fs Fields) Clone() Fields {
	ans := make(Fields, len(fs)+8)
	for k, v := range fs {
		ans[k] = v
	}
	return ans
}

// Update copies all the fields of other to fs, replacing
// existing ones.
func (fs Fields) Update(other Fields) Fields {
	for k, v := range other {
		fs[k] = v
	}
	return fs
}

// With returns a copy of fs extended by other.
func (fs Fields) With(other Fields) Fields {
	return fs.Clone().Update(other)
}

// FromStrings converts a string map to eager fields
func FromStrings(m map[string]string) Fields {
	ans := make(Fields, len(m))
	for k, v := range m {
		ans[k] = Eager(v)
	}
	return ans
}
