package incomplete

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportWorklistWritesHeaderAndRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Track(ctx, "north-motors", TrackInput{SessionKey: "sess-x", Name: "Dana", Phone: "5550100", FormStep: "contact_info", Source: "google"})
	require.NoError(t, err)
	f.advance(5 * time.Hour)

	name, data, err := f.svc.ExportWorklist(ctx, WorklistParams{Actor: f.manager()})
	require.NoError(t, err)
	assert.Equal(t, "incomplete-leads-20260310-1400.xlsx", name)

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	rows, err := xl.GetRows(worklistSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, worklistHeader, rows[0])
	assert.Equal(t, enums.PriorityMedium.String(), rows[1][0])
	assert.Equal(t, "5 hours ago", rows[1][1])
	assert.Equal(t, "Dana", rows[1][2])
	assert.Equal(t, "sess-x", rows[1][9])
}

func TestRenderWorkbookEmpty(t *testing.T) {
	data, err := RenderWorkbook(nil)
	require.NoError(t, err)

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	rows, err := xl.GetRows(worklistSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
