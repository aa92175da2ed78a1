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
	"fmt"
	"sort"

	"korpexport/formatter"
	"korpexport/options"
)

const (
	DefaultCharset = "utf-8"
)

// Hooks customize the rendering pipeline for a format.
type Hooks struct {

	// AdjustOptions modifies the effective options once list-valued
	// options are expanded. Hooks of all the composed plugins are
	// applied (bases first).
	AdjustOptions func(t options.Table)

	// Items override the default item renderers
	Items map[string]formatter.ItemFunc

	// Postprocess transforms the rendered content. With composed
	// plugins, the last one in the chain is used.
	Postprocess formatter.PostprocessFunc

	// Encode produces binary output. With composed plugins,
	// the last one in the chain is used.
	Encode formatter.EncodeFunc
}

// Plugin describes an export format. Plugins compose by listing
// their Bases: option defaults and hooks of the bases are applied
// before the plugin's own ones.
type Plugin struct {
	Names      []string
	MIMEType   string
	Extension  string
	Charset    string
	Structured bool
	Bases      []*Plugin
	Defaults   options.Table
	Subformats map[string]options.Table
	Hooks      Hooks
}

func (p *Plugin) Name() string {
	if len(p.Names) == 0 {
		return ""
	}
	return p.Names[0]
}

// chain returns the plugin together with all its bases
// linearized depth first (bases before the plugin). A base
// shared by multiple plugins is listed only once.
func (p *Plugin) chain() []*Plugin {
	ans := make([]*Plugin, 0, 4)
	seen := make(map[*Plugin]bool)
	var walk func(*Plugin)
	walk = func(curr *Plugin) {
		if seen[curr] {
			return
		}
		seen[curr] = true
		for _, b := range curr.Bases {
			walk(b)
		}
		ans = append(ans, curr)
	}
	walk(p)
	return ans
}

// ---------------------------

// Format is a ready to use export format created from one
// or more plugins.
type Format struct {
	names      []string
	chain      []*Plugin
	mimeType   string
	extension  string
	charset    string
	structured bool
}

// compose creates a format from plugins of the requested format
// names. Plugins are applied in the reverse order so the first
// named format takes precedence.
func compose(names []string, plugins []*Plugin) *Format {
	ans := &Format{
		names:    names,
		mimeType: "application/unknown",
		charset:  DefaultCharset,
	}
	seen := make(map[*Plugin]bool)
	for i := len(plugins) - 1; i >= 0; i-- {
		for _, p := range plugins[i].chain() {
			if seen[p] {
				continue
			}
			seen[p] = true
			ans.chain = append(ans.chain, p)
		}
	}
	var binary bool
	for _, p := range ans.chain {
		if p.MIMEType != "" {
			ans.mimeType = p.MIMEType
		}
		if p.Extension != "" {
			ans.extension = p.Extension
		}
		if p.Charset != "" {
			ans.charset = p.Charset
		}
		if p.Structured {
			ans.structured = true
		}
		if p.Hooks.Encode != nil {
			binary = true
		}
	}
	if binary {
		ans.charset = ""
	}
	return ans
}

// Names returns the format names as requested
func (f *Format) Names() []string {
	return f.names
}

func (f *Format) MIMEType() string {
	return f.mimeType
}

// Extension returns the file name extension including
// the leading dot.
func (f *Format) Extension() string {
	return f.extension
}

// Charset returns the download charset. An empty value
// means the output is binary.
func (f *Format) Charset() string {
	return f.charset
}

func (f *Format) IsBinary() bool {
	return f.charset == ""
}

func (f *Format) Structured() bool {
	return f.structured
}

// Defaults returns the default options of the format: pipeline
// defaults overridden by the plugin defaults.
func (f *Format) Defaults() options.Table {
	layers := make([]options.Table, 0, len(f.chain)+1)
	layers = append(layers, formatter.DefaultOptions())
	for _, p := range f.chain {
		layers = append(layers, p.Defaults)
	}
	return options.Merge(layers...)
}

func (f *Format) subformatTables() map[string]options.Table {
	ans := make(map[string]options.Table)
	for _, p := range f.chain {
		for k, v := range p.Subformats {
			ans[k] = v
		}
	}
	return ans
}

// Subformats returns sorted names of the available subformats
func (f *Format) Subformats() []string {
	tables := f.subformatTables()
	ans := make([]string, 0, len(tables))
	for k := range tables {
		ans = append(ans, k)
	}
	sort.Strings(ans)
	return ans
}

// Options returns effective (unexpanded) options for the requested
// subformats and per-request overrides. Unknown subformats are ignored.
// All the templates are validated.
func (f *Format) Options(subformats []string, overrides options.Table) (options.Table, error) {
	tables := f.subformatTables()
	layers := []options.Table{f.Defaults()}
	for _, sf := range subformats {
		if t, ok := tables[sf]; ok {
			layers = append(layers, t)
		}
	}
	layers = append(layers, overrides)
	ans := options.Merge(layers...)
	if err := options.ValidateTemplates(ans); err != nil {
		return nil, fmt.Errorf("invalid options of format %v: %w", f.names, err)
	}
	return ans, nil
}

// Config creates a rendering configuration with the effective options.
func (f *Format) Config(opts options.Table) formatter.Config {
	cfg := formatter.Config{
		Options:    opts,
		Defaults:   f.Defaults(),
		Structured: f.structured,
		Items:      make(map[string]formatter.ItemFunc),
	}
	for _, p := range f.chain {
		if p.Hooks.AdjustOptions != nil {
			cfg.AdjustOptions = append(cfg.AdjustOptions, p.Hooks.AdjustOptions)
		}
		for k, v := range p.Hooks.Items {
			cfg.Items[k] = v
		}
		if p.Hooks.Postprocess != nil {
			cfg.Postprocess = p.Hooks.Postprocess
		}
		if p.Hooks.Encode != nil {
			cfg.Encode = p.Hooks.Encode
		}
	}
	return cfg
}
