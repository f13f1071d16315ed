package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// SheetName имя листа в выгрузке.
const SheetName = "Șantiere"

const (
	headerColor  = "4F81BD"
	numFmtComma  = 3 // встроенный формат #,##0
	columnWidth  = 20
	dateLayout   = "02.01.2006"
	missingValue = "-"
)

// cellKind определяет стиль ячейки данных.
type cellKind int

const (
	cellPlain cellKind = iota
	cellNumber
)

type cell struct {
	kind  cellKind
	value any
}

func text(v string) cell {
	return cell{kind: cellPlain, value: v}
}

func textOrDash(v *string) cell {
	if v == nil || *v == "" {
		return text(missingValue)
	}
	return text(*v)
}

func number(v *float64) cell {
	if v == nil {
		return text(missingValue)
	}
	return cell{kind: cellNumber, value: *v}
}

func date(v *time.Time) cell {
	if v == nil {
		return text(missingValue)
	}
	return text(v.Format(dateLayout))
}

func coordinate(v *float64) cell {
	if v == nil {
		return text(missingValue)
	}
	return text(fmt.Sprintf("%.6f", *v))
}

// buildWorkbook собирает книгу с одним листом: жирная белая шапка на синем фоне, первая строка закреплена.
func buildWorkbook(headers []string, rows [][]cell) ([]byte, error) {
	const op = "export.buildWorkbook"
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	numberStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtComma})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i, h := range headers {
		name, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := f.SetCellValue(SheetName, name, h); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := f.SetCellStyle(SheetName, "A1", lastHeader, headerStyle); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for r, row := range rows {
		for c, v := range row {
			name, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if err := f.SetCellValue(SheetName, name, v.value); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if v.kind == cellNumber {
				if err := f.SetCellStyle(SheetName, name, name, numberStyle); err != nil {
					return nil, fmt.Errorf("%s: %w", op, err)
				}
			}
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := f.SetColWidth(SheetName, "A", lastCol, columnWidth); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}
