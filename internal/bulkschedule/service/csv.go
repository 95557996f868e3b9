package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	bulkdomain "github.com/novahq/nova/internal/bulkschedule/domain"
	"github.com/shopspring/decimal"
)

// exportRow flattens a payment with its vendor and bank details for the
// disbursement sheet.
type exportRow struct {
	VendorName  string          `gorm:"column:vendor_name"`
	BankName    *string         `gorm:"column:bank_name"`
	BankCode    *string         `gorm:"column:bank_code"`
	GrossAmount decimal.Decimal `gorm:"column:gross_amount"`
	VatAmount   decimal.Decimal `gorm:"column:vat_amount"`
	WhtAmount   decimal.Decimal `gorm:"column:wht_amount"`
	NetAmount   decimal.Decimal `gorm:"column:net_amount"`
	Description string          `gorm:"column:description"`
}

func (s *Service) ExportCSV(ctx context.Context, tenantID, id snowflake.ID) (bulkdomain.ExportFile, error) {
	batch, err := s.findBatch(ctx, tenantID, id)
	if err != nil {
		return bulkdomain.ExportFile{}, err
	}
	if batch.Status != bulkdomain.BulkScheduleStatusApproved {
		return bulkdomain.ExportFile{}, bulkdomain.ErrNotApproved
	}

	rows, err := s.listExportRows(ctx, tenantID, batch.ID)
	if err != nil {
		return bulkdomain.ExportFile{}, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Account Details", "Amount", "VAT (7.5%)", "WHT (2%)", "Amount Payable", "Narration"}
	if err := w.Write(header); err != nil {
		return bulkdomain.ExportFile{}, err
	}

	for _, row := range rows {
		record := []string{
			accountDetails(row),
			formatMoney(row.GrossAmount),
			formatTax(row.VatAmount),
			formatTax(row.WhtAmount),
			formatMoney(row.NetAmount),
			row.Description,
		}
		if err := w.Write(record); err != nil {
			return bulkdomain.ExportFile{}, err
		}
	}

	summary := [][]string{
		{""},
		{"Summary"},
		{"Total Amount", formatMoney(batch.TotalGrossAmount)},
		{"Total VAT", formatMoney(batch.TotalVatAmount)},
		{"Total WHT", formatMoney(batch.TotalWhtAmount)},
		{"Total Payable", formatMoney(batch.TotalNetAmount)},
	}
	for _, record := range summary {
		if err := w.Write(record); err != nil {
			return bulkdomain.ExportFile{}, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return bulkdomain.ExportFile{}, err
	}

	return bulkdomain.ExportFile{
		Content:     buf.Bytes(),
		FileName:    fmt.Sprintf("BulkSchedule_%s_%s.csv", batch.BatchNumber, s.clock.Now().Format("20060102")),
		ContentType: "text/csv",
	}, nil
}

func (s *Service) listExportRows(ctx context.Context, tenantID, batchID snowflake.ID) ([]exportRow, error) {
	var rows []exportRow
	err := s.db.WithContext(ctx).
		Table("payments").
		Select("vendors.name AS vendor_name, banks.name AS bank_name, banks.code AS bank_code, "+
			"payments.gross_amount, payments.vat_amount, payments.wht_amount, payments.net_amount, payments.description").
		Joins("JOIN vendors ON vendors.id = payments.vendor_id").
		Joins("LEFT JOIN banks ON banks.id = vendors.bank_id").
		Where("payments.tenant_id = ? AND payments.bulk_schedule_id = ?", tenantID, batchID).
		Order("vendors.name ASC, payments.created_at ASC").
		Scan(&rows).Error
	return rows, err
}

func accountDetails(row exportRow) string {
	bankName := "N/A"
	if row.BankName != nil && *row.BankName != "" {
		bankName = *row.BankName
	}
	bankCode := "N/A"
	if row.BankCode != nil && *row.BankCode != "" {
		bankCode = *row.BankCode
	}
	return row.VendorName + "\n" + bankName + "\n" + bankCode
}

// formatTax renders a tax amount, showing N/A when none was withheld.
func formatTax(amount decimal.Decimal) string {
	if amount.IsZero() {
		return "N/A"
	}
	return formatMoney(amount)
}

// formatMoney renders an amount with two decimals and thousands separators.
func formatMoney(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	out := b.String() + "." + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
