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

import "korpexport/options"

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` + "\n"

func prependXMLDeclaration(t options.Table) {
	if options.IsTrue(t["xml_declaration"]) {
		t["content_format"] = xmlDeclaration + options.StrValue(t["content_format"])
	}
}

var vrtPlugin = &Plugin{
	Names:      []string{"vrt"},
	MIMEType:   "text/plain",
	Extension:  ".vrt",
	Structured: true,
	Defaults: options.Table{
		"content_format": "{info}{token_field_headings}" +
			"<korp_kwic>\n{sentences}</korp_kwic>\n",
		"infoitem_format":       "<!-- {label}:{sp_or_nl}{value} -->",
		"title_format":          "<!-- {title} -->\n",
		"param_format":          "       {label}: {value}",
		"param_sep":             "\n",
		"field_headings_format": "<!-- Fields: {field_headings} -->\n",
		"sentence_format": "{left_context}<MATCH position=\"{match_pos}\">\n" +
			"{match}</MATCH>\n{right_context}",
		"token_format":                     "{structs_open}{fields}\n{structs_close}",
		"token_sep":                        "",
		"token_field_sep":                  "\t",
		"attr_sep":                         "\t",
		"token_struct_open_noattrs_format": "<{name}>\n",
		"token_struct_open_attrs_format":   "<{name} {attrs}>\n",
		"token_struct_close_format":        "</{name}>\n",
		"token_struct_attr_format":         "{name}=\"{value}\"",
		"token_struct_attr_sep":            " ",
		"combine_token_structs":            "True",
		"xml_declaration":                  "False",
	},
	Hooks: Hooks{
		AdjustOptions: prependXMLDeclaration,
	},
}
