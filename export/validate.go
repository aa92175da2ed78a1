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
	"strings"
	"sync"

	"korpexport/merror"

	"github.com/xeipuuv/gojsonschema"
)

const queryResultSchema = `{
	"type": "object",
	"properties": {
		"kwic": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["tokens"],
				"properties": {
					"corpus": {"type": "string"},
					"tokens": {
						"type": "array",
						"items": {"type": "object"}
					},
					"match": {"type": ["object", "array"]},
					"structs": {"type": "object"},
					"aligned": {"type": "object"}
				}
			}
		},
		"hits": {"type": "integer", "minimum": 0},
		"corpus_hits": {
			"type": "object",
			"additionalProperties": {"type": "integer"}
		},
		"ERROR": {"type": "object"}
	}
}`

var compiledQueryResultSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(queryResultSchema))
})

// ValidateQueryResult checks the shape of a query result posted
// by a client. Only the structure the exporter relies on is checked.
func ValidateQueryResult(data []byte) error {
	schema, err := compiledQueryResultSchema()
	if err != nil {
		return merror.InternalError{Msg: fmt.Sprintf("invalid query result schema: %s", err)}
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return merror.InputError{Msg: fmt.Sprintf("failed to validate query_result: %s", err)}
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return merror.InputError{Msg: "invalid query_result: " + strings.Join(errs, "; ")}
	}
	return nil
}
