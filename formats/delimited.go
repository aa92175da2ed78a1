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

package formats

import (
	"strings"

	"korpexport/formatter"
	"korpexport/options"
)

var lemmasExtraPosAttrs = []string{
	"lemma",
	"cleanword",
	"spoken",
	"original",
	"normalized",
	"searchword",
}

func lemmasResultinfoFields() string {
	items := make([]string, len(lemmasExtraPosAttrs))
	for i, attr := range lemmasExtraPosAttrs {
		items[i] = "?" + attr + "s_all"
	}
	return strings.Join(items, ",")
}

func lemmasKwicFields() string {
	items := make([]string, 0, len(lemmasExtraPosAttrs)*3)
	for _, attr := range lemmasExtraPosAttrs {
		for _, tt := range []string{"left_context", "match", "right_context"} {
			items = append(items, "?"+attr+"s_"+tt)
		}
	}
	return strings.Join(items, ",")
}

// quoteDelimited quotes tab-separated fields of the rendered
// content and joins them with the `delimiter` option. Nothing
// happens with an empty `quote` option.
func quoteDelimited(r *formatter.Renderer, text string) string {
	quote := r.Opts().Str("quote")
	if quote == "" {
		return text
	}
	delimiter := r.Opts().Str("delimiter")
	replaceQuote := r.Opts().Str("replace_quote")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		for j, field := range fields {
			fields[j] = quote + strings.ReplaceAll(field, quote, replaceQuote) + quote
		}
		lines[i] = strings.Join(fields, delimiter)
	}
	return strings.Join(lines, "\n")
}

// insertMatchField adds the match marker field to token fields
// as specified by the `match_field` option ("0" for the first
// field, any other non-empty value for the last one).
func insertMatchField(t options.Table) {
	matchField := options.StrValue(t["match_field"])
	if matchField == "" {
		return
	}
	fields, _ := t["token_fields"].([]string)
	if matchField == "0" {
		t["token_fields"] = append([]string{"match_mark"}, fields...)

	} else {
		t["token_fields"] = append(fields, "match_mark")
	}
}

var delimitedPlugin = &Plugin{
	Names: []string{"_delimited"},
	Defaults: options.Table{
		"infoitem_format": "## {label}:{sp_or_nl}{value}",
		"title_format":    "## {title}\n",
		"param_format":    "##   {label}: {value}",
		"param_sep":       "\n",
		"sentence_fields": "corpus,urn,metadata_link,licence_name," +
			"licence_link,match_pos,left_context,match," +
			"right_context,?aligned,*structs",
		"delimiter":     "\t",
		"quote":         "",
		"replace_quote": "",
	},
	Hooks: Hooks{
		Postprocess: quoteDelimited,
	},
}

var delimitedSentencePlugin = &Plugin{
	Names: []string{"sentence_line", "sentences", "fields_sentence"},
	Bases: []*Plugin{delimitedPlugin},
	Defaults: options.Table{
		"content_format":  "{sentence_field_headings}{sentences}\n\n{info}",
		"sentence_format": "{fields}",
		"sentence_sep":    "\n",
		"sentence_fields": "corpus,?urn,?metadata_link,?licence_name," +
			"?licence_link,match_pos,left_context,match," +
			"right_context,?aligned,*structs",
		"sentence_field_sep": "\t",
	},
	Subformats: map[string]options.Table{
		"lemmas-resultinfo": {
			"show_info":       "false",
			"title_format":    "{title}",
			"infoitem_format": "{value}",
			"param_format":    "{key}={value}",
			"param_sep":       "; ",
			"infoitems":       "date,korp_url",
			"sentence_fields": "hit_num,corpus,tokens," +
				lemmasResultinfoFields() +
				",?aligned,*structs,?urn,?metadata_link,?licence_name," +
				"date,hitcount,?korp_url,params",
			"sentence_token_attrs": strings.Join(lemmasExtraPosAttrs, ","),
			"token_format":         "{match_open}{word}{match_close}",
			"heading_rows":         "1",
		},
		"lemmas-kwic": {
			"sentence_fields": "hit_num,corpus,left_context,match,right_context," +
				lemmasKwicFields() +
				",?aligned,*structs,?urn,?metadata_link,?licence_name,date," +
				"hitcount,?korp_url,params",
			"sentence_token_attrs": strings.Join(lemmasExtraPosAttrs, ","),
		},
	},
}

var delimitedTokenPlugin = &Plugin{
	Names: []string{"token_line", "tokens", "fields_token", "annotations", "annot"},
	Bases: []*Plugin{delimitedPlugin},
	Defaults: options.Table{
		"content_format":        "{info}{token_field_headings}{sentences}",
		"infoitems_format":      "{title}\n{infoitems}\n\n",
		"field_headings_format": "{field_headings}\n\n",
		"sentence_format":       "{info}{fields}",
		"sentence_sep":          "",
		"sentence_info_format": "# {corpus}" +
			" ({corpus_info}):" +
			" sentence {sentence_id}," +
			" position {match_pos};" +
			" text attributes: {structs}\n",
		"sentence_fields":       "left_context,match,right_context",
		"sentence_field_format": "{value}",
		"sentence_field_sep":    "",
		"sentence_field_skip":   `\s*`,
		"corpus_info_format": "URN {urn};" +
			" licence {licence_name}: {licence_link};" +
			" metadata {metadata_link}",
		"token_format":         "{fields}\n",
		"token_noattrs_format": "{fields}\n",
		"token_sep":            "",
		"token_fields":         "word,*attrs",
		"token_field_sep":      "\t",
		"struct_format":        "{name}: {value}",
		"match_marker":         "*",
		"match_field":          "0",
	},
	Hooks: Hooks{
		AdjustOptions: insertMatchField,
	},
}

var referencePlugin = &Plugin{
	Names: []string{"reference", "biblio", "bibref", "ref"},
	Bases: []*Plugin{delimitedPlugin},
	Defaults: options.Table{
		"content_format":           "{info}\n{sentences}",
		"title_format":             "## {title}\n",
		"infoitem_format":          "## {label}{sp_or_nl}{value}",
		"infoitem_spacechar":       "\t",
		"param_format":             "##   {label}\t{value}",
		"sentence_format":          "sentence\t{tokens}\n{corpus_info}\n{structs}\n",
		"sentence_sep":             "\n",
		"corpus_info_fields":       "corpus_name,urn,licence_name,licence_link,metadata_link",
		"corpus_info_field_format": "{label}\t{value}",
		"corpus_info_field_sep":    "\n",
		"struct_format":            "{name}\t{value}",
		"struct_sep":               "\n",
		"token_format":             "{match_open}{word}{match_close}",
		"match_open":               "<<< ",
		"match_close":              " >>>",
		"heading_cols":             "1",
	},
}

var csvPlugin = &Plugin{
	Names:     []string{"csv"},
	MIMEType:  "text/csv",
	Extension: ".csv",
	Bases:     []*Plugin{delimitedSentencePlugin},
	Defaults: options.Table{
		"newline":       "\r\n",
		"delimiter":     ",",
		"quote":         "\"",
		"replace_quote": "\"\"",
	},
}

var tsvPlugin = &Plugin{
	Names:     []string{"tsv"},
	MIMEType:  "text/tsv",
	Extension: ".tsv",
	Bases:     []*Plugin{delimitedSentencePlugin},
	Defaults: options.Table{
		"delimiter":     "\t",
		"quote":         "",
		"replace_quote": "",
	},
}
