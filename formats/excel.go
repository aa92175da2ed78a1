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
	"strings"
	"unicode/utf8"

	"korpexport/formatter"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheetName = "Sheet1"
	maxSheetNameLen  = 31
)

var sheetNameCleaner = strings.NewReplacer(
	":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")")

// sheetName converts a title into a valid worksheet name
func sheetName(title string) string {
	ans := strings.Trim(sheetNameCleaner.Replace(title), "' ")
	if utf8.RuneCountInString(ans) > maxSheetNameLen {
		ans = string([]rune(ans)[:maxSheetNameLen])
	}
	if ans == "" {
		return defaultSheetName
	}
	return ans
}

// encodeWorkbook writes tab-separated lines of the rendered content
// as rows of a single worksheet. Empty lines produce empty rows.
func encodeWorkbook(r *formatter.Renderer, text string) ([]byte, error) {
	wb := excelize.NewFile()
	defer wb.Close()
	sheet := sheetName(r.Opts().Str("title"))
	if sheet != defaultSheetName {
		if err := wb.SetSheetName(defaultSheetName, sheet); err != nil {
			return nil, fmt.Errorf("failed to create worksheet: %w", err)
		}
	}
	for rowNum, row := range strings.Split(text, "\n") {
		if row == "" {
			continue
		}
		for colNum, value := range strings.Split(row, "\t") {
			cell, err := excelize.CoordinatesToCellName(colNum+1, rowNum+1)
			if err != nil {
				return nil, fmt.Errorf("failed to write worksheet: %w", err)
			}
			if err := wb.SetCellStr(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write worksheet: %w", err)
			}
		}
	}
	buff, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buff.Bytes(), nil
}

var excelPlugin = &Plugin{
	Names:     []string{"xlsx", "xls", "excel"},
	MIMEType:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	Extension: ".xlsx",
	Bases:     []*Plugin{delimitedSentencePlugin},
	Hooks: Hooks{
		Encode: encodeWorkbook,
	},
}
