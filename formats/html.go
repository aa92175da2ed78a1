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
	"regexp"
	"strings"

	"korpexport/formatter"
	"korpexport/options"
	"korpexport/tpl"

	"golang.org/x/net/html"
)

// HTML markup in the `html_*_format` options must survive escaping
// of the whole page so it is temporarily replaced by control characters.
var (
	htmlProtector = strings.NewReplacer(
		"<", "\x01", ">", "\x02", "&", "\x03", "\"", "\x04", "'", "\x05")
	htmlRestorer = strings.NewReplacer(
		"\x01", "<", "\x02", ">", "\x03", "&", "\x04", "\"", "\x05", "'")
)

func protectHTMLFormats(t options.Table) {
	for k, v := range t {
		sv, ok := v.(string)
		if ok && strings.HasPrefix(k, "html_") && strings.HasSuffix(k, "_format") {
			t[k] = htmlProtector.Replace(sv)
		}
	}
}

// htmlLineFunc formats a single line of rendered content. The matchRx
// (if not nil) finds matches wrapped in the match open and close strings.
type htmlLineFunc func(r *formatter.Renderer, matchRx *regexp.Regexp, line string, lineNum int) string

func matchRegexp(r *formatter.Renderer) *regexp.Regexp {
	openMark := r.Opts().Str("match_open")
	closeMark := r.Opts().Str("match_close")
	if openMark == "" || closeMark == "" || r.Opts().Str("html_match_format") == "" {
		return nil
	}
	return regexp.MustCompile(regexp.QuoteMeta(openMark) + `(.*?)` + regexp.QuoteMeta(closeMark))
}

func formatHTMLMatches(r *formatter.Renderer, rx *regexp.Regexp, line string) string {
	if rx == nil {
		return line
	}
	return rx.ReplaceAllStringFunc(line, func(m string) string {
		sub := rx.FindStringSubmatch(m)
		return r.Item("html_match", tpl.Fields{"match": tpl.Eager(sub[1])})
	})
}

// htmlPage creates a post-processing function wrapping rendered
// content lines in an HTML page.
func htmlPage(lineFn htmlLineFunc) formatter.PostprocessFunc {
	return func(r *formatter.Renderer, text string) string {
		skip, _ := r.Opts().Int("skip_leading_lines")
		matchRx := matchRegexp(r)
		var lines strings.Builder
		for i, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			if i < skip {
				continue
			}
			lines.WriteString(
				r.Item("html_line", tpl.Fields{"line": tpl.Eager(lineFn(r, matchRx, line, i))}))
		}
		infoitems := r.Infoitems()
		head := r.Item("html_head", tpl.Fields{
			"title": tpl.Eager(r.Item("html_title", infoitems)),
			"style": tpl.Eager(r.Opts().Str("html_style")),
		})
		body := r.Item("html_body", tpl.Fields{
			"heading":   tpl.Eager(r.Item("html_heading", infoitems)),
			"korp_link": tpl.Eager(r.Item("html_korp_link", infoitems)),
			"lines":     tpl.Eager(lines.String()),
		})
		page := r.Item("html_page", tpl.Fields{
			"doctype": tpl.Eager(r.Opts().Str("html_doctype_format")),
			"head":    tpl.Eager(head),
			"body":    tpl.Eager(body),
		})
		return htmlRestorer.Replace(html.EscapeString(page))
	}
}

func formatHTMLLine(r *formatter.Renderer, matchRx *regexp.Regexp, line string, _ int) string {
	return formatHTMLMatches(r, matchRx, line)
}

func formatHTMLTableLine(r *formatter.Renderer, _ *regexp.Regexp, line string, lineNum int) string {
	headingRows, _ := r.Opts().Int("heading_rows")
	headingCols, _ := r.Opts().Int("heading_cols")
	var ans strings.Builder
	for colNum, cell := range strings.Split(line, "\t") {
		cellFormat := "html_data_cell"
		if lineNum < headingRows || colNum < headingCols {
			cellFormat = "html_heading_cell"
		}
		ans.WriteString(r.Item(cellFormat, tpl.Fields{"cell": tpl.Eager(cell)}))
	}
	return ans.String()
}

var htmlPlugin = &Plugin{
	Names:     []string{"html"},
	MIMEType:  "text/html",
	Extension: ".html",
	Defaults: options.Table{
		"html_page_format": "{doctype}\n<html>\n<head>\n{head}\n</head>\n" +
			"<body>\n{body}</body>\n</html>\n",
		"html_doctype_format": "<!DOCTYPE html>",
		"html_head_format": "<meta charset=\"utf-8\"/>\n" +
			"<title>{title}</title>\n" +
			"<style>{style}</style>",
		"html_title_format":     "{title} {date}",
		"html_style":            "",
		"html_body_format":      "{heading}\n{korp_link}\n<hr/>\n{lines}",
		"html_heading_format":   "<h1>{title} {date}</h1>",
		"html_korp_link_format": "<p><a href=\"{korp_url}\" target=\"_blank\">{korp_url}</a></p>",
		"html_line_format":      "<p>{line}</p>\n",
		"html_match_format":     "<strong>{match}</strong>",
	},
	Hooks: Hooks{
		AdjustOptions: protectHTMLFormats,
		Postprocess:   htmlPage(formatHTMLLine),
	},
}

var htmlTablePlugin = &Plugin{
	Names: []string{"html-table", "html_table"},
	Bases: []*Plugin{htmlPlugin},
	Defaults: options.Table{
		"html_style":               "th { text-align: left; }",
		"html_body_format":         "{heading}\n{korp_link}\n<hr/>\n<table>\n{lines}</table>\n",
		"html_line_format":         "<tr>{line}</tr>\n",
		"html_heading_cell_format": "<th>{cell}</th>",
		"html_data_cell_format":    "<td>{cell}</td>",
	},
	Hooks: Hooks{
		Postprocess: htmlPage(formatHTMLTableLine),
	},
}
