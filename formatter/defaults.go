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

package formatter

import "korpexport/options"

// DefaultOptions returns the base option table shared by all the
// export formats. Format plugins override individual values.
func DefaultOptions() options.Table {
	return options.Table{
		options.ListValuedOpts: []string{
			"infoitems",
			"params",
			"sentence_fields",
			"sentence_token_attrs",
			"corpus_info_fields",
			"token_fields",
		},
		"newline":             "\n",
		"show_info":           "True",
		"show_field_headings": "True",
		"content_format":      "{info}{sentence_field_headings}{sentences}",
		"infoitems_format":    "{title}{infoitems}\n",
		"infoitems":           "date,korp_url,params,hitcount",
		"infoitem_labels": map[string]string{
			"date":            "Date",
			"params":          "Query parameters",
			"hitcount":        "Total hits",
			"korp_url":        "Korp URL",
			"korp_server_url": "Korp server URL",
		},
		"infoitem_format": "{label}:{sp_or_nl}{value}",
		"infoitem_sep":    "\n",
		"title_format":    "{title}\n",
		"title":           "Korp search results",
		"date_format":     "%Y-%m-%d %H:%M:%S",
		"hitcount_format": "{hitcount}",
		"params_format":   "{params}",
		"params":          "corpus,cqp,defaultcontext,defaultwithin,sort,start,end",
		"param_labels": map[string]string{
			"corpus":         "corpora",
			"cqp":            "CQP query",
			"defaultcontext": "context",
			"defaultwithin":  "within",
			"sort":           "sorting",
		},
		"param_format":          "{label}: {value}",
		"param_sep":             "; ",
		"field_headings_format": "{field_headings}\n",
		"sentence_format": "{info}: {left_context}" +
			"{match_open}{match}{match_close}" +
			"{right_context}\n",
		"sentence_sep":         "",
		"sentence_info_format": "{corpus} {match_pos}",
		"sentence_fields":      "",
		"sentence_field_labels": map[string]string{
			"match_pos":       "match position",
			"left_context":    "left context",
			"right_context":   "right context",
			"aligned":         "aligned text",
			"corpus_info":     "corpus info",
			"urn":             "URN",
			"licence_name":    "licence",
			"licence_link":    "licence link",
			"metadata_link":   "metadata link",
			"hit_num":         "hit number",
			"sentence_num":    "sentence number",
			"korp_url":        "Korp URL",
			"korp_server_url": "Korp server URL",
			"hitcount":        "total hits",
			// irregular plurals of token attribute fields
			"spokens":     "spoken forms",
			"originals":   "original forms",
			"normalizeds": "normalized forms",
		},
		"sentence_field_format": "{value}",
		"sentence_field_sep":    "",
		"sentence_token_attrs":  "",
		"corpus_info_format":    "{fields}",
		"corpus_info_fields":    "",
		"corpus_info_field_labels": map[string]string{
			"corpus_name":   "corpus",
			"urn":           "URN",
			"licence_name":  "licence",
			"licence_link":  "licence link",
			"metadata_link": "metadata link",
		},
		"corpus_info_field_format":  "{value}",
		"corpus_info_field_sep":     "",
		"aligned_format":            "{sentence}",
		"aligned_sep":               " | ",
		"struct_format":             "{name}: {value}",
		"struct_sep":                "; ",
		"token_format":              "{match_open}{word}[{attrs}]{match_close}",
		"token_noattrs_format":      "{match_open}{word}{match_close}",
		"token_attr_format":         "{match_open}{attr}{match_close}",
		"token_sep":                 " ",
		"word_format":               "{word}",
		"attr_only_format":          "{value}",
		"token_fields":              "word,*attrs",
		"token_field_labels":        map[string]string{"match_mark": "match"},
		"token_field_format":        "{value}",
		"token_field_sep":           ";",
		"attr_format":               "{value}",
		"attr_sep":                  ";",
		"token_struct_open_format":  "",
		"token_struct_close_format": "",
		"token_struct_open_sep":     "",
		"token_struct_close_sep":    "",
		"combine_token_structs":     "False",
		"match_open":                "",
		"match_close":               "",
		"match_marker":              "*",
	}
}
