package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	bulkdomain "github.com/novahq/nova/internal/bulkschedule/domain"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName  = "GAPS Schedule"
	dateLayout = "02/Jan/2006"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var workbookHeaders = []string{
	"Payment Amount",
	"Payment Date",
	"Reference",
	"Remark",
	"Vendor Code",
	"Vendor Name",
	"Account Number",
	"Bank Sort Code",
}

func (s *Service) ExportWorkbook(ctx context.Context, tenantID snowflake.ID, batchNumber string) (bulkdomain.ExportFile, error) {
	lines, err := s.GetByBatchNumber(ctx, tenantID, batchNumber)
	if err != nil {
		return bulkdomain.ExportFile{}, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return bulkdomain.ExportFile{}, err
	}

	widths := make([]int, len(workbookHeaders))
	writeRow := func(row int, values []any) error {
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
			if n := len(fmt.Sprint(value)); n > widths[col] {
				widths[col] = n
			}
		}
		return nil
	}

	headerValues := make([]any, len(workbookHeaders))
	for i, h := range workbookHeaders {
		headerValues[i] = h
	}
	if err := writeRow(1, headerValues); err != nil {
		return bulkdomain.ExportFile{}, err
	}

	for i, line := range lines {
		values := []any{
			line.PaymentAmount.InexactFloat64(),
			line.PaymentDate.Format(dateLayout),
			line.Reference,
			line.Remark,
			line.VendorCode,
			line.VendorName,
			line.VendorAccountNumber,
			line.VendorBankSortCode,
		}
		if err := writeRow(i+2, values); err != nil {
			return bulkdomain.ExportFile{}, err
		}
	}

	for col, width := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return bulkdomain.ExportFile{}, err
		}
		if err := f.SetColWidth(sheetName, name, name, float64(width)+2); err != nil {
			return bulkdomain.ExportFile{}, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return bulkdomain.ExportFile{}, err
	}

	return bulkdomain.ExportFile{
		Content:     buf.Bytes(),
		FileName:    fmt.Sprintf("GAPS_Schedule_%s.xlsx", batchNumber),
		ContentType: xlsxContentType,
	}, nil
}
