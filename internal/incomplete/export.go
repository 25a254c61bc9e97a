package incomplete

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const worklistSheet = "Worklist"

var worklistHeader = []string{
	"priority", "recency", "name", "phone", "email", "form_step",
	"fields_completed", "source", "last_activity", "session_key", "dealer_id",
}

// ExportWorklist renders the same worklist Worklist returns as an XLSX
// workbook and a suggested file name.
func (s *service) ExportWorklist(ctx context.Context, params WorklistParams) (string, []byte, error) {
	list, err := s.Worklist(ctx, params)
	if err != nil {
		return "", nil, err
	}
	data, err := RenderWorkbook(list)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render worklist workbook")
	}
	filename := fmt.Sprintf("incomplete-leads-%s.xlsx", list.GeneratedAt.UTC().Format("20060102-1504"))
	return filename, data, nil
}

// RenderWorkbook writes one row per worklist item below a header row.
func RenderWorkbook(list *Worklist) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), worklistSheet); err != nil {
		return nil, err
	}
	header := worklistHeader
	if err := xl.SetSheetRow(worklistSheet, "A1", &header); err != nil {
		return nil, err
	}

	var items []WorklistItem
	if list != nil {
		items = list.Items
	}
	for i, item := range items {
		record := []string{
			item.Priority.String(),
			item.RecencyLabel,
			deref(item.Name),
			deref(item.Phone),
			deref(item.Email),
			item.FormStep.String(),
			strings.Join(item.FieldsCompleted, ", "),
			item.Source,
			item.LastActivity.UTC().Format(time.RFC3339),
			item.SessionKey,
			item.DealerID.String(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := xl.SetSheetRow(worklistSheet, cell, &record); err != nil {
			return nil, err
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
