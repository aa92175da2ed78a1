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

var textBareSubformat = options.Table{
	"infoitems_format":   "{title} | {infoitems}\n",
	"infoitem_format":    "{value}",
	"infoitems":          "date,korp_url",
	"infoitem_sep":       " | ",
	"title_format":       "{title}",
	"sentence_format":    "{tokens}\n",
	"skip_leading_lines": "1",
}

var textPlugin = &Plugin{
	Names:     []string{"text"},
	MIMEType:  "text/plain",
	Extension: ".txt",
	Defaults: options.Table{
		"content_format":   "{info}{sentences}",
		"infoitems_format": "{title}\n{infoitems}\n\n",
		"infoitem_format":  "## {label}:{sp_or_nl}{value}",
		"title_format":     "## {title}\n",
		"param_format":     "##   {label}: {value}",
		"param_sep":        "\n",
		"sentence_format":  "{corpus} [{match_pos}]: {tokens} || {structs}\n",
		"struct_sep":       " | ",
		"match_open":       "<<< ",
		"match_close":      " >>>",
	},
	Subformats: map[string]options.Table{
		"sentences-bare": textBareSubformat,
		"bare":           textBareSubformat,
	},
}
