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

package tpl

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Engine formats templates with a shared cache of parsed
// templates. It is safe for concurrent use.
type Engine struct {
	placeholder string
	cache       map[string]*Template
	cacheLock   sync.RWMutex
}

// Placeholder returns the string used for missing fields
func (e *Engine) Placeholder() string {
	return e.placeholder
}

func (e *Engine) template(src string) (*Template, error) {
	e.cacheLock.RLock()
	t, ok := e.cache[src]
	e.cacheLock.RUnlock()
	if ok {
		return t, nil
	}
	t, err := Parse(src)
	if err != nil {
		return nil, err
	}
	e.cacheLock.Lock()
	e.cache[src] = t
	e.cacheLock.Unlock()
	return t, nil
}

// Format fills the template src with fields. Formatting never fails,
// a malformed template (which should have been caught by Validate
// when configuring formats) is returned as it is.
func (e *Engine) Format(src string, fields Fields) string {
	if src == "" {
		return ""
	}
	t, err := e.template(src)
	if err != nil {
		log.Debug().Err(err).Msg("using malformed template verbatim")
		return src
	}
	return t.Execute(fields, e.placeholder)
}

// Validate checks the template syntax
func (e *Engine) Validate(src string) error {
	_, err := e.template(src)
	return err
}

// NewEngine creates a new template engine with the placeholder
// used for missing fields.
func NewEngine(placeholder string) *Engine {
	return &Engine{
		placeholder: placeholder,
		cache:       make(map[string]*Template),
	}
}

// Validate checks the template syntax without caching
// the parsed template.
func Validate(src string) error {
	_, err := Parse(src)
	return err
}
