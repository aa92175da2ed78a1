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

package options

import (
	"fmt"
	"strconv"
	"strings"
)

// Table is a set of named format options. Values are strings,
// string lists or string maps (labels).
type Table map[string]any

func cloneValue(v any) any {
	switch tv := v.(type) {
	case []string:
		ans := make([]string, len(tv))
		copy(ans, tv)
		return ans
	case map[string]string:
		ans := make(map[string]string, len(tv))
		for k, v := range tv {
			ans[k] = v
		}
		return ans
	default:
		return v
	}
}

// Clone creates a deep copy of the table so the copy
// can be modified without affecting the original.
func (t Table) Clone() Table {
	ans := make(Table, len(t))
	for k, v := range t {
		ans[k] = cloneValue(v)
	}
	return ans
}

// Update overwrites values in t with the values from other.
// Label maps are replaced as a whole.
func (t Table) Update(other Table) Table {
	for k, v := range other {
		t[k] = cloneValue(v)
	}
	return t
}

// Merge creates a new table by applying layers in order,
// later layers override earlier ones.
func Merge(layers ...Table) Table {
	ans := make(Table)
	for _, layer := range layers {
		ans.Update(layer)
	}
	return ans
}

// StrValue converts an option value to a string.
func StrValue(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case string:
		return tv
	case []string:
		return strings.Join(tv, ",")
	case bool:
		if tv {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(tv)
	default:
		return fmt.Sprint(tv)
	}
}

// ---------------------------

// Options are effective (fully merged and expanded) options
// of a single export. Once created, options are not modified.
type Options struct {
	data     Table
	defaults Table
}

// Str returns option value as a string. Missing options
// are returned as an empty string.
func (o *Options) Str(name string) string {
	return StrValue(o.data[name])
}

func (o *Options) Has(name string) bool {
	_, ok := o.data[name]
	return ok
}

// Value returns the raw value of an option
func (o *Options) Value(name string) any {
	return o.data[name]
}

// List returns a list-valued option. A string value
// is split at commas.
func (o *Options) List(name string) []string {
	switch tv := o.data[name].(type) {
	case []string:
		return tv
	case string:
		if tv == "" {
			return []string{}
		}
		return strings.Split(tv, ",")
	default:
		return []string{}
	}
}

// ListOrNil is like List but it distinguishes missing option (nil)
// from an empty one.
func (o *Options) ListOrNil(name string) []string {
	if _, ok := o.data[name]; !ok {
		return nil
	}
	return o.List(name)
}

// Labels returns a label mapping option (e.g. `param_labels`)
func (o *Options) Labels(name string) map[string]string {
	if v, ok := o.data[name].(map[string]string); ok {
		return v
	}
	return map[string]string{}
}

// Label returns a label for key from the labels option,
// falling back to the key itself.
func (o *Options) Label(labelsOpt, key string) string {
	if v, ok := o.Labels(labelsOpt)[key]; ok {
		return v
	}
	return key
}

// Bool interprets an option as a boolean value. Values "false", "no",
// "off", "0" (case-insensitive) and the empty string mean false.
func (o *Options) Bool(name string) bool {
	return IsTrue(o.data[name])
}

// Int parses an integer option. An invalid value is replaced by the
// default value of the format. The second return value is false
// when neither value is an integer.
func (o *Options) Int(name string) (int, bool) {
	if v, ok := toInt(o.data[name]); ok {
		return v, true
	}
	return toInt(o.defaults[name])
}

// Table returns a copy of all the options.
func (o *Options) Table() Table {
	return o.data.Clone()
}

// Keys returns names of all the options
func (o *Options) Keys() []string {
	ans := make([]string, 0, len(o.data))
	for k := range o.data {
		ans = append(ans, k)
	}
	return ans
}

// New freezes the table t into options. The defaults are
// used as fallback values for invalid integer options.
func New(t Table, defaults Table) *Options {
	if defaults == nil {
		defaults = Table{}
	}
	return &Options{data: t.Clone(), defaults: defaults}
}

// ---------------------------

// IsTrue evaluates an option value as a boolean
func IsTrue(v any) bool {
	switch tv := v.(type) {
	case bool:
		return tv
	case nil:
		return false
	default:
		switch strings.ToLower(StrValue(tv)) {
		case "false", "no", "off", "0", "":
			return false
		}
		return true
	}
}

func toInt(v any) (int, bool) {
	switch tv := v.(type) {
	case int:
		return tv, true
	case string:
		ans, err := strconv.Atoi(strings.TrimSpace(tv))
		if err != nil {
			return 0, false
		}
		return ans, true
	default:
		return 0, false
	}
}
