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
	"sort"
	"strings"

	"korpexport/tpl"
)

const (
	// ListValuedOpts names the option listing which options
	// are lists given as comma-separated strings.
	ListValuedOpts = "list_valued_opts"
)

// ExpandLists converts comma-separated string values of list-valued
// options (as named by the `list_valued_opts` option) to lists.
// Items are handled as follows:
//
//   - `*name` is replaced by the items of the option `name`
//   - `?name` is kept (as `name`) only if isAvailable(name) holds
//   - other items are kept as they are
//
// Options are expanded in the order given by `list_valued_opts` so
// `*name` refers to an already expanded list when `name` precedes
// the option being expanded. Values which are already lists are left
// untouched.
func ExpandLists(t Table, isAvailable func(name string) bool) {
	var listOpts []string
	switch tv := t[ListValuedOpts].(type) {
	case []string:
		listOpts = tv
	case string:
		if tv != "" {
			listOpts = strings.Split(tv, ",")
		}
	}
	for _, optKey := range listOpts {
		sval, ok := t[optKey].(string)
		if !ok {
			continue
		}
		if sval == "" {
			t[optKey] = []string{}
			continue
		}
		items := strings.Split(sval, ",")
		expanded := make([]string, 0, len(items))
		for _, item := range items {
			switch {
			case strings.HasPrefix(item, "*"):
				expanded = append(expanded, spliceValue(t[item[1:]])...)
			case strings.HasPrefix(item, "?"):
				if isAvailable != nil && isAvailable(item[1:]) {
					expanded = append(expanded, item[1:])
				}
			default:
				expanded = append(expanded, item)
			}
		}
		t[optKey] = expanded
	}
}

func spliceValue(v any) []string {
	switch tv := v.(type) {
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

// ExtractShow resolves an attribute (or structure) selection spec
// as used in the `attrs` and `structs` request parameters. The spec
// is a comma-separated list of:
//
//   - `*` for all the names listed in the respective query parameter
//   - `+` for those names from the query parameter which actually
//     occur in the result (as decided by occurring)
//   - `-name` to remove a previously added name
//   - a name
func ExtractShow(spec, queryParamVal string, occurring func(names []string) []string) []string {
	ans := make([]string, 0, 8)
	for _, val := range strings.Split(spec, ",") {
		switch {
		case val == "*" || val == "+":
			all := strings.Split(queryParamVal, ",")
			if val == "+" && occurring != nil {
				all = occurring(all)
			}
			ans = append(ans, all...)
		case strings.HasPrefix(val, "-"):
			name := val[1:]
			for i, v := range ans {
				if v == name {
					ans = append(ans[:i], ans[i+1:]...)
					break
				}
			}
		default:
			ans = append(ans, val)
		}
	}
	return ans
}

// ValidateTemplates checks syntax of all the `*_format` string
// options except for `date_format` which is a strftime format.
func ValidateTemplates(t Table) error {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !strings.HasSuffix(k, "_format") || k == "date_format" {
			continue
		}
		s, ok := t[k].(string)
		if !ok {
			continue
		}
		if err := tpl.Validate(s); err != nil {
			return fmt.Errorf("invalid option %s: %w", k, err)
		}
	}
	return nil
}
