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
	"regexp"
	"sort"
	"strings"
	"sync"

	"korpexport/merror"
	"korpexport/options"
)

var (
	formatNamesSepRx = regexp.MustCompile(`[,;+\s]+`)

	defaultRegistry     *Registry
	defaultRegistryErr  error
	defaultRegistryOnce sync.Once
)

// SplitNames splits a format specification containing possibly
// multiple format names separated by commas, semicolons, plus
// signs or spaces.
func SplitNames(spec string) []string {
	ans := make([]string, 0, 2)
	for _, v := range formatNamesSepRx.Split(strings.ToLower(spec), -1) {
		if v != "" {
			ans = append(ans, v)
		}
	}
	return ans
}

// Info is a summary of a registered format
type Info struct {
	Names      []string `json:"names"`
	MIMEType   string   `json:"mimeType"`
	Extension  string   `json:"extension"`
	Charset    string   `json:"charset"`
	Subformats []string `json:"subformats"`
}

// Registry maps format names to plugins. It is read-only
// once created.
type Registry struct {
	plugins []*Plugin
	byName  map[string]*Plugin
}

// NewRegistry registers the plugins. Each format name must map
// to exactly one plugin and all the templates in plugin defaults
// and subformats must be well formed.
func NewRegistry(plugins ...*Plugin) (*Registry, error) {
	ans := &Registry{byName: make(map[string]*Plugin)}
	for _, p := range plugins {
		if len(p.Names) == 0 {
			return nil, merror.ConfigError{Msg: "format plugin without a name"}
		}
		for _, name := range p.Names {
			if prev, ok := ans.byName[name]; ok {
				return nil, merror.ConfigError{
					Msg: fmt.Sprintf(
						"format name %s used by both %s and %s", name, prev.Name(), p.Name()),
				}
			}
			ans.byName[name] = p
		}
		for _, c := range p.chain() {
			if err := options.ValidateTemplates(c.Defaults); err != nil {
				return nil, merror.ConfigError{
					Msg: fmt.Sprintf("format %s: %s", p.Name(), err)}
			}
			for sfName, sf := range c.Subformats {
				if err := options.ValidateTemplates(sf); err != nil {
					return nil, merror.ConfigError{
						Msg: fmt.Sprintf("format %s, subformat %s: %s", p.Name(), sfName, err)}
				}
			}
		}
		ans.plugins = append(ans.plugins, p)
	}
	return ans, nil
}

// Lookup creates a format for the requested names. With multiple
// names, the first one is the primary format which the other ones
// may modify.
func (reg *Registry) Lookup(names ...string) (*Format, error) {
	if len(names) == 0 {
		return nil, merror.UnsupportedFormatError{}
	}
	plugins := make([]*Plugin, len(names))
	for i, name := range names {
		p, ok := reg.byName[strings.ToLower(name)]
		if !ok {
			return nil, merror.UnsupportedFormatError{Format: name}
		}
		plugins[i] = p
	}
	return compose(names, plugins), nil
}

// LookupSpec is like Lookup but it accepts a format specification
// string as used in export requests (e.g. `sentences,csv`).
func (reg *Registry) LookupSpec(spec string) (*Format, error) {
	names := SplitNames(spec)
	if len(names) == 0 {
		return nil, merror.UnsupportedFormatError{Format: spec}
	}
	return reg.Lookup(names...)
}

// Infos summarizes all the registered formats sorted
// by their main name.
func (reg *Registry) Infos() []Info {
	ans := make([]Info, 0, len(reg.plugins))
	for _, p := range reg.plugins {
		f := compose(p.Names[:1], []*Plugin{p})
		ans = append(ans, Info{
			Names:      p.Names,
			MIMEType:   f.MIMEType(),
			Extension:  f.Extension(),
			Charset:    f.Charset(),
			Subformats: f.Subformats(),
		})
	}
	sort.Slice(ans, func(i, j int) bool {
		return ans[i].Names[0] < ans[j].Names[0]
	})
	return ans
}

// Builtin returns plugins of all the built-in export formats
func Builtin() []*Plugin {
	return []*Plugin{
		delimitedSentencePlugin,
		delimitedTokenPlugin,
		referencePlugin,
		csvPlugin,
		tsvPlugin,
		textPlugin,
		jsonPlugin,
		vrtPlugin,
		htmlPlugin,
		htmlTablePlugin,
		excelPlugin,
		noojPlugin,
	}
}

// Default returns the registry of the built-in formats
func Default() (*Registry, error) {
	defaultRegistryOnce.Do(func() {
		defaultRegistry, defaultRegistryErr = NewRegistry(Builtin()...)
	})
	return defaultRegistry, defaultRegistryErr
}
