// Package ingest converts value store workbooks into value tables.
//
// Only the first worksheet is read. Row 1 binds headers to columns; every
// later row contributes one value per populated cell in a bound column.
// Values are normalized to text: strings lose surrounding zero-width spaces,
// integers become decimal text, and any other stored type is replaced by a
// diagnostic placeholder so one odd cell never aborts the sheet.
package ingest

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/louisbranch/valuestore/internal/platform/errors"
	"github.com/louisbranch/valuestore/internal/services/valuestore/domain"
)

// zeroWidthSpace is stripped from both ends of header and text values.
// Sheets edited in browsers pick it up from copy/paste.
const zeroWidthSpace = "\u200b"

// Ingestor reads workbooks from memory.
type Ingestor struct {
	logger zerolog.Logger
}

// New returns an Ingestor that reports sheet statistics to logger at debug
// level.
func New(logger zerolog.Logger) *Ingestor {
	return &Ingestor{logger: logger}
}

// Ingest parses data as an xlsx workbook and returns the first worksheet as
// a ValueTable. Workbook-level failures are reported as INGEST_FAILED;
// individual cells never fail.
func (in *Ingestor) Ingest(data []byte) (domain.ValueTable, error) {
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CodeIngestFailed, "workbook is empty")
	}
	start := time.Now()

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIngestFailed, "open workbook", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			in.logger.Warn().Err(err).Msg("close workbook")
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.New(apperrors.CodeIngestFailed, "workbook has no worksheets")
	}

	reader := &sheetReader{file: f, sheet: sheets[0]}
	table, rowCount, err := reader.read()
	if err != nil {
		return nil, err
	}

	in.logger.Debug().
		Str("sheet", reader.sheet).
		Int("rows", rowCount).
		Int("headers", table.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("workbook ingested")
	return table, nil
}

type sheetReader struct {
	file  *excelize.File
	sheet string
}

func (r *sheetReader) read() (domain.ValueTable, int, error) {
	rows, err := r.file.Rows(r.sheet)
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeIngestFailed, fmt.Sprintf("read worksheet %q", r.sheet), err)
	}
	defer rows.Close()

	table := domain.ValueTable{}
	headers := map[int]string{}
	rowNum := 0
	for rows.Next() {
		rowNum++
		columns, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, rowNum, apperrors.Wrap(apperrors.CodeIngestFailed, fmt.Sprintf("read row %d", rowNum), err)
		}

		for i, raw := range columns {
			if raw == "" {
				continue
			}
			colNum := i + 1
			if rowNum > 1 {
				if _, bound := headers[colNum]; !bound {
					continue
				}
			}

			coord, err := excelize.CoordinatesToCellName(colNum, rowNum)
			if err != nil {
				return nil, rowNum, apperrors.Wrap(apperrors.CodeIngestFailed, "resolve cell coordinate", err)
			}
			value, err := r.cell(coord, raw)
			if err != nil {
				return nil, rowNum, err
			}

			if rowNum == 1 {
				header := value.headerText()
				headers[colNum] = header
				table.Bind(header)
				continue
			}
			table.Append(headers[colNum], value.text())
		}
	}
	if err := rows.Error(); err != nil {
		return nil, rowNum, apperrors.Wrap(apperrors.CodeIngestFailed, fmt.Sprintf("iterate worksheet %q", r.sheet), err)
	}
	return table, rowNum, nil
}

// cell classifies the stored value at coord. raw is the unformatted value
// from the row iterator and is never empty here.
func (r *sheetReader) cell(coord, raw string) (cellValue, error) {
	cellType, err := r.file.GetCellType(r.sheet, coord)
	if err != nil {
		return cellValue{}, apperrors.Wrap(apperrors.CodeIngestFailed, "read cell type at "+coord, err)
	}

	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		// Formula cells surface here only when their cached result is text.
		return cellValue{kind: kindText, raw: raw, coord: coord}, nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		return r.number(coord, raw)
	case excelize.CellTypeBool:
		return unhandled(coord, raw, "bool"), nil
	case excelize.CellTypeDate:
		return unhandled(coord, raw, "date"), nil
	case excelize.CellTypeError:
		return unhandled(coord, raw, "error"), nil
	default:
		return unhandled(coord, raw, "unknown"), nil
	}
}

func (r *sheetReader) number(coord, raw string) (cellValue, error) {
	isDate, err := r.hasDateFormat(coord)
	if err != nil {
		return cellValue{}, err
	}
	if isDate {
		return unhandled(coord, raw, "date"), nil
	}
	if integer, ok := integerText(raw); ok {
		return cellValue{kind: kindInteger, raw: integer, coord: coord}, nil
	}
	return unhandled(coord, raw, "float"), nil
}

func (r *sheetReader) hasDateFormat(coord string) (bool, error) {
	styleID, err := r.file.GetCellStyle(r.sheet, coord)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeIngestFailed, "read cell style at "+coord, err)
	}
	if styleID == 0 {
		return false, nil
	}
	style, err := r.file.GetStyle(styleID)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeIngestFailed, "read style at "+coord, err)
	}
	return isDateFormat(style), nil
}
