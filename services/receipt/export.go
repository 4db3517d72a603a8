package receipt

import (
	"bytes"
	"context"
	"fmt"

	"localcity/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Receipts"

var exportHeader = []interface{}{
	"Receipt ID", "Submitted", "Status", "Merchant", "Merchant ID",
	"User ID", "Amount", "Purchased", "Reviewed By", "Reviewed At", "Rejection Reason",
}

// Export writes every receipt matching filter into a single-sheet workbook.
func (s *DefaultReceiptService) Export(ctx context.Context, filter models.ReceiptFilter) (*bytes.Buffer, error) {
	filter.Limit, filter.Offset = -1, 0
	receipts, _, err := s.Repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return WriteWorkbook(receipts)
}

// WriteWorkbook renders receipts as XLSX.
func WriteWorkbook(receipts []models.Receipt) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("export header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("export style: %w", err)
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("export style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("export style: %w", err)
	}

	for i, r := range receipts {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		reviewedAt := ""
		if r.ReviewedAt != nil {
			reviewedAt = r.ReviewedAt.UTC().Format("2006-01-02 15:04")
		}
		values := []interface{}{
			r.ID,
			r.CreatedAt.UTC().Format("2006-01-02 15:04"),
			string(r.Status),
			r.MerchantName,
			r.MerchantID,
			r.UserID,
			r.Amount.InexactFloat64(),
			r.PurchasedAt.UTC().Format("2006-01-02"),
			r.ReviewedBy,
			reviewedAt,
			r.RejectionReason,
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("export row %d: %w", row, err)
		}
		amountCell, _ := excelize.CoordinatesToCellName(7, row)
		if err := f.SetCellStyle(exportSheet, amountCell, amountCell, money); err != nil {
			return nil, fmt.Errorf("export row %d: %w", row, err)
		}
	}
	if err := f.SetColWidth(exportSheet, "A", "K", 18); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if err := f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return buf, nil
}
