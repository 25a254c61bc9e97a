package funnel

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/internal/dealers"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/dbtest"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.Discard()
	svc, err := NewService(NewRepository(conn), dealers.NewRepository(conn), access.NewGuard(logg, nil), logg)
	require.NoError(t, err)
	return svc, conn
}

func addDealer(t *testing.T, conn *gorm.DB, slug string) uuid.UUID {
	t.Helper()
	dealer := models.Dealer{ID: uuid.New(), Slug: slug, Name: slug, IsActive: true}
	require.NoError(t, conn.Create(&dealer).Error)
	return dealer.ID
}

func addLead(t *testing.T, conn *gorm.DB, dealerID uuid.UUID, assignee *uuid.UUID, status enums.LeadStatus, createdAt time.Time) {
	t.Helper()
	phone := uuid.NewString()
	row := models.Lead{
		ID:              uuid.New(),
		DealerID:        dealerID,
		AssignedTo:      assignee,
		Phone:           &phone,
		Source:          "facebook",
		Consent:         true,
		Status:          status,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
		StatusUpdatedAt: createdAt,
	}
	require.NoError(t, conn.Create(&row).Error)
}

func TestAggregateEmptyDealer(t *testing.T) {
	svc, conn := setup(t)
	dealerID := addDealer(t, conn, "empty-motors")
	admin := access.Actor{UserID: uuid.New(), DealerID: &dealerID, Role: enums.RoleDealerAdmin}

	report, err := svc.Aggregate(context.Background(), Params{Actor: admin})
	require.NoError(t, err)
	assert.Zero(t, report.SetRate)
	assert.Zero(t, report.ShowRate)
	assert.Zero(t, report.CloseRate)
	assert.Equal(t, map[string]int{"new": 0, "set": 0, "show": 0, "close": 0}, report.LeadsByStatus)
	require.NotNil(t, report.DealerID)
	assert.Equal(t, dealerID, *report.DealerID)
}

func TestAggregateScopesByActor(t *testing.T) {
	svc, conn := setup(t)
	ctx := context.Background()
	north := addDealer(t, conn, "north")
	south := addDealer(t, conn, "south")
	repID := uuid.New()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	addLead(t, conn, north, &repID, enums.LeadStatusSet, now)
	addLead(t, conn, north, nil, enums.LeadStatusNew, now)
	addLead(t, conn, north, nil, enums.LeadStatusClose, now.Add(-40*24*time.Hour))
	addLead(t, conn, south, nil, enums.LeadStatusShow, now)

	manager := access.Actor{UserID: uuid.New(), DealerID: &north, Role: enums.RoleSalesManager}
	report, err := svc.Aggregate(ctx, Params{Actor: manager})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)

	rep := access.Actor{UserID: repID, DealerID: &north, Role: enums.RoleSalesRep}
	report, err = svc.Aggregate(ctx, Params{Actor: rep})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.LeadsByStatus["set"])
	require.NotNil(t, report.AssignedTo)

	super := access.Actor{UserID: uuid.New(), Role: enums.RoleSuperAdmin}
	report, err = svc.Aggregate(ctx, Params{Actor: super})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Total)
	assert.Nil(t, report.DealerID)

	report, err = svc.Aggregate(ctx, Params{Actor: super, DealerID: &south})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)

	window, err := ResolveWindow("", "", "30d", now.Add(time.Hour))
	require.NoError(t, err)
	report, err = svc.Aggregate(ctx, Params{Actor: manager, Window: window})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)

	_, err = svc.Aggregate(ctx, Params{Actor: manager, DealerID: &south})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied), "got %v", err)
}

func TestAggregateUnknownDealer(t *testing.T) {
	svc, _ := setup(t)
	super := access.Actor{UserID: uuid.New(), Role: enums.RoleSuperAdmin}
	missing := uuid.New()

	_, err := svc.Aggregate(context.Background(), Params{Actor: super, DealerID: &missing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = svc.Aggregate(context.Background(), Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)
}
