package businessflow

import (
	"context"
	"errors"
	"time"

	"github.com/amirphl/lead-manager/app/dto"
	"github.com/amirphl/lead-manager/models"
	"github.com/amirphl/lead-manager/utils"
	"github.com/xuri/excelize/v2"
)

const leadExportSheet = "Leads"

var leadExportHeader = []any{"ID", "Name", "Email", "Type", "Company Name", "Phone Number", "Created At", "Updated At"}

// Export renders every lead into an xlsx workbook, one row per lead
func (f *LeadFlowImpl) Export(ctx context.Context, metadata *ClientMetadata) (*dto.ExportLeadsResponse, error) {
	leads, err := f.leadRepo.ByFilter(ctx, models.LeadFilter{}, "created_at ASC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("LEAD_LIST_FAILED", "Failed to list leads", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), leadExportSheet); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to prepare Excel sheet", err)
	}

	headerCell, _ := excelize.CoordinatesToCellName(1, 1)
	if err := xl.SetSheetRow(leadExportSheet, headerCell, &leadExportHeader); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel header", err)
	}

	for i, l := range leads {
		record := []any{
			l.ID.String(),
			l.Name,
			l.Email,
			l.Type.String(),
			utils.StringValue(l.CompanyName),
			l.PhoneNumber,
			l.CreatedAt.UTC().Format(time.RFC3339),
			l.UpdatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(leadExportSheet, cellRef, &record); err != nil {
			return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel row", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", errors.Join(ErrExportFailed, err))
	}

	return &dto.ExportLeadsResponse{
		Filename: utils.LeadExportFilename,
		Content:  buf.Bytes(),
		Count:    len(leads),
	}, nil
}
