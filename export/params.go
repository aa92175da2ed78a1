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

package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"korpexport/merror"
	"korpexport/tpl"

	"github.com/bytedance/sonic"
)

var (
	listParamSplitRx = regexp.MustCompile(`[,.]`)
	listParamItemRx  = regexp.MustCompile(`^([^()]*)([()])?(.*)$`)
	cqpQuotedRx      = regexp.MustCompile(`"((?:[^\\"]|\\.)*?)"`)
	cqpNonWordRx     = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_]+`)

	// encodedListParams may contain prefix-encoded lists
	encodedListParams = []string{"corpus", "show", "show_struct", "context", "within"}

	renamedParams = [][2]string{
		{"default_context", "defaultcontext"},
		{"default_within", "defaultwithin"},
	}

	filenameEngine = tpl.NewEngine("")
)

// DecodeListParam splits a list-valued query parameter on commas
// and periods and expands one level of common prefixes with suffixes
// marked by parentheses, e.g. `LAM_A(HLA,NTR)` becomes
// `LAM_AHLA`, `LAM_ANTR`.
func DecodeListParam(value string) []string {
	items := listParamSplitRx.Split(value, -1)
	ans := make([]string, 0, len(items))
	var prefix string
	for _, item := range items {
		srch := listParamItemRx.FindStringSubmatch(item)
		pref, sep, suff := srch[1], srch[2], srch[3]
		switch sep {
		case "(":
			prefix = pref
			ans = append(ans, prefix+suff)
		case ")":
			ans = append(ans, prefix+pref)
			prefix = ""
		default:
			ans = append(ans, prefix+pref)
		}
	}
	return ans
}

// decodeQueryParamsJSON reads the `query_params` request argument.
// Non-string values are kept in their JSON representation.
func decodeQueryParamsJSON(src string) (map[string]string, error) {
	var raw map[string]any
	if err := sonic.UnmarshalString(src, &raw); err != nil {
		return nil, merror.InputError{Msg: fmt.Sprintf("invalid query_params: %s", err)}
	}
	ans := make(map[string]string, len(raw))
	for k, v := range raw {
		switch tv := v.(type) {
		case string:
			ans[k] = tv
		case nil:
			ans[k] = ""
		default:
			enc, err := sonic.MarshalString(tv)
			if err != nil {
				return nil, merror.InputError{Msg: fmt.Sprintf("invalid query_params value %s: %s", k, err)}
			}
			ans[k] = enc
		}
	}
	return ans, nil
}

// NormalizeQueryParams prepares backend query parameters obtained
// from a request. The `query_params` argument (JSON) is preferred,
// otherwise the form itself is used. Parameters with historical names
// are renamed, prefix-encoded lists are decoded and for structured
// formats `show_struct` attributes are added to `show` so tokens
// carry structure open/close info.
func NormalizeQueryParams(form map[string]string, structured bool) (map[string]string, error) {
	var ans map[string]string
	if src, ok := form["query_params"]; ok {
		var err error
		ans, err = decodeQueryParamsJSON(src)
		if err != nil {
			return nil, err
		}

	} else {
		ans = make(map[string]string, len(form))
		for k, v := range form {
			ans[k] = v
		}
	}
	for _, rn := range renamedParams {
		if v, ok := ans[rn[0]]; ok {
			ans[rn[1]] = v
		}
	}
	for _, name := range encodedListParams {
		if v, ok := ans[name]; ok {
			ans[name] = strings.Join(DecodeListParam(v), ",")
		}
	}
	if v, ok := form["debug"]; ok {
		if _, ok2 := ans["debug"]; !ok2 {
			ans["debug"] = v
		}
	}
	if structured && ans["show_struct"] != "" {
		if ans["show"] != "" {
			ans["show"] += "," + ans["show_struct"]

		} else {
			ans["show"] = ans["show_struct"]
		}
	}
	return ans, nil
}

// CQPWords creates a file name friendly representation of a CQP
// query from its quoted strings.
func CQPWords(cqp string) string {
	matches := cqpQuotedRx.FindAllStringSubmatch(cqp, -1)
	words := make([]string, len(matches))
	for i, m := range matches {
		words[i] = cqpNonWordRx.ReplaceAllString(m[1], "_")
	}
	return strings.Join(words, "_")
}

// MakeFilename returns the form argument `filename` if present.
// Otherwise the name is created from filenameFormat (or the default
// one) with the fields `date`, `time`, `ext`, `cqpwords`, `start`
// and `end` available.
func MakeFilename(
	form, queryParams map[string]string,
	filenameFormat, ext string,
	now time.Time,
) string {
	if v, ok := form["filename"]; ok {
		return v
	}
	if filenameFormat == "" {
		filenameFormat = dfltFilenameFormat
	}
	return filenameEngine.Format(
		filenameFormat,
		tpl.Fields{
			"date":     tpl.Eager(now.Format("20060102")),
			"time":     tpl.Eager(now.Format("150405")),
			"ext":      tpl.Eager(ext),
			"cqpwords": tpl.Eager(CQPWords(queryParams["cqp"])),
			"start":    tpl.Eager(queryParams["start"]),
			"end":      tpl.Eager(queryParams["end"]),
		},
	)
}
