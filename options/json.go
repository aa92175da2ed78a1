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
	"math"
)

// FromJSON converts generic decoded JSON data (e.g. a configuration
// section) to an option table. Lists become []string, objects become
// label maps and integral numbers become ints.
func FromJSON(data map[string]any) Table {
	ans := make(Table, len(data))
	for k, v := range data {
		ans[k] = fromJSONValue(v)
	}
	return ans
}

func fromJSONValue(v any) any {
	switch tv := v.(type) {
	case float64:
		if tv == math.Trunc(tv) && math.Abs(tv) < math.MaxInt32 {
			return int(tv)
		}
		return StrValue(tv)
	case []any:
		ans := make([]string, len(tv))
		for i, item := range tv {
			ans[i] = StrValue(fromJSONValue(item))
		}
		return ans
	case map[string]any:
		ans := make(map[string]string, len(tv))
		for k, item := range tv {
			ans[k] = StrValue(fromJSONValue(item))
		}
		return ans
	default:
		return v
	}
}
