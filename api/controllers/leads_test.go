package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealercrm-backend/internal/leads"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
)

func TestPublicCreateLeadUsesSlugAndIgnoresDealerID(t *testing.T) {
	var gotSlug string
	var gotInput leads.CreateLeadInput
	svc := stubLeadService{
		createPublicFn: func(ctx context.Context, slug string, input leads.CreateLeadInput) (*leads.LeadDTO, error) {
			gotSlug = slug
			gotInput = input
			return &leads.LeadDTO{ID: uuid.New(), Status: enums.LeadStatusNew}, nil
		},
	}

	body := `{"dealer_id":"` + uuid.NewString() + `","contact":{"name":"Ana","phone":"555-0100"},"message":"interested","attribution":{"source":"facebook","utm_campaign":"spring"},"consent":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/public/dealers/acme-motors/leads", strings.NewReader(body))
	req = withURLParam(req, "slug", "acme-motors")
	resp := httptest.NewRecorder()
	PublicCreateLead(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotSlug != "acme-motors" {
		t.Fatalf("expected slug forwarded, got %q", gotSlug)
	}
	if gotInput.DealerID != nil {
		t.Fatal("public intake must not accept a dealer id from the body")
	}
	if gotInput.Attribution.Source != "facebook" || gotInput.Attribution.UTMCampaign != "spring" {
		t.Fatalf("attribution not forwarded: %+v", gotInput.Attribution)
	}
	if !gotInput.Consent || gotInput.Contact.Phone != "555-0100" {
		t.Fatalf("unexpected input %+v", gotInput)
	}
}

func TestPublicCreateLeadRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/public/dealers/acme/leads", strings.NewReader(`{"status":"close"}`))
	req = withURLParam(req, "slug", "acme")
	resp := httptest.NewRecorder()
	PublicCreateLead(stubLeadService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestTransitionLeadConflictCarriesCurrentVersion(t *testing.T) {
	leadID := uuid.New()
	actor := dealerActor(enums.RoleSalesManager)
	svc := stubLeadService{
		transitionFn: func(ctx context.Context, input leads.TransitionInput) (*leads.LeadDTO, error) {
			if input.LeadID != leadID || input.Actor.UserID != actor.UserID {
				t.Fatalf("unexpected input %+v", input)
			}
			if input.Status != "set" || input.ExpectedVersion != "v1" {
				t.Fatalf("unexpected body forwarding %+v", input)
			}
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "lead was modified; re-fetch and retry").
				WithDetails(map[string]any{"current_version": "v2"})
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads/"+leadID.String()+"/transition", strings.NewReader(`{"status":"set","version":"v1"}`))
	req = withURLParam(withActorContext(req, actor), "leadId", leadID.String())
	resp := httptest.NewRecorder()
	TransitionLead(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	envelope := decodeError(t, resp)
	if !envelope.Error.Retryable {
		t.Fatal("expected conflict to be retryable")
	}
	if envelope.Error.Details["current_version"] != "v2" {
		t.Fatalf("expected current_version detail, got %+v", envelope.Error.Details)
	}
}

func TestTransitionLeadRequiresVersion(t *testing.T) {
	leadID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"close"}`))
	req = withURLParam(withActorContext(req, dealerActor(enums.RoleSalesRep)), "leadId", leadID.String())
	resp := httptest.NewRecorder()
	TransitionLead(stubLeadService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetLeadRejectsInvalidPathID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leads/not-a-uuid", nil)
	req = withURLParam(withActorContext(req, dealerActor(enums.RoleSalesManager)), "leadId", "not-a-uuid")
	resp := httptest.NewRecorder()
	GetLead(stubLeadService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetLeadRequiresActor(t *testing.T) {
	leadID := uuid.New()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "leadId", leadID.String())
	resp := httptest.NewRecorder()
	GetLead(stubLeadService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAssignLeadForwardsTarget(t *testing.T) {
	leadID, target := uuid.New(), uuid.New()
	var got leads.AssignInput
	svc := stubLeadService{
		assignFn: func(ctx context.Context, input leads.AssignInput) (*leads.LeadDTO, error) {
			got = input
			return &leads.LeadDTO{ID: input.LeadID, AssignedTo: &input.TargetUserID}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":"`+target.String()+`"}`))
	req = withURLParam(withActorContext(req, dealerActor(enums.RoleSalesManager)), "leadId", leadID.String())
	resp := httptest.NewRecorder()
	AssignLead(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got.LeadID != leadID || got.TargetUserID != target {
		t.Fatalf("unexpected assign input %+v", got)
	}
}

func TestListLeadsParsesFilters(t *testing.T) {
	assignee := uuid.New()
	var got leads.ListParams
	svc := stubLeadService{
		listFn: func(ctx context.Context, params leads.ListParams) (*leads.LeadList, error) {
			got = params
			return &leads.LeadList{NextCursor: "next"}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leads?status=new&source=google&assigned_to="+assignee.String()+"&limit=10&cursor=abc", nil)
	req = withActorContext(req, dealerActor(enums.RoleDealerAdmin))
	resp := httptest.NewRecorder()
	ListLeads(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got.Status != "new" || got.Source != "google" || got.Limit != 10 || got.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", got)
	}
	if got.AssignedTo == nil || *got.AssignedTo != assignee {
		t.Fatal("expected assigned_to filter")
	}

	var envelope struct {
		Data leads.LeadList `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.NextCursor != "next" {
		t.Fatalf("expected next cursor, got %q", envelope.Data.NextCursor)
	}
}

func TestListLeadsRejectsOversizedLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leads?limit=5000", nil)
	req = withActorContext(req, dealerActor(enums.RoleDealerAdmin))
	resp := httptest.NewRecorder()
	ListLeads(stubLeadService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
