package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/dealercrm-backend/api/middleware"
	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/internal/auth"
	"github.com/angelmondragon/dealercrm-backend/internal/incomplete"
	"github.com/angelmondragon/dealercrm-backend/internal/leads"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
)

type stubLeadService struct {
	createPublicFn func(ctx context.Context, slug string, input leads.CreateLeadInput) (*leads.LeadDTO, error)
	transitionFn   func(ctx context.Context, input leads.TransitionInput) (*leads.LeadDTO, error)
	assignFn       func(ctx context.Context, input leads.AssignInput) (*leads.LeadDTO, error)
	listFn         func(ctx context.Context, params leads.ListParams) (*leads.LeadList, error)
}

func (s stubLeadService) CreatePublic(ctx context.Context, slug string, input leads.CreateLeadInput) (*leads.LeadDTO, error) {
	if s.createPublicFn != nil {
		return s.createPublicFn(ctx, slug, input)
	}
	return &leads.LeadDTO{}, nil
}

func (s stubLeadService) Create(ctx context.Context, actor access.Actor, input leads.CreateLeadInput) (*leads.LeadDTO, error) {
	return &leads.LeadDTO{}, nil
}

func (s stubLeadService) Get(ctx context.Context, actor access.Actor, leadID uuid.UUID) (*leads.LeadDTO, error) {
	return &leads.LeadDTO{ID: leadID}, nil
}

func (s stubLeadService) List(ctx context.Context, params leads.ListParams) (*leads.LeadList, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &leads.LeadList{}, nil
}

func (s stubLeadService) History(ctx context.Context, actor access.Actor, leadID uuid.UUID) ([]leads.HistoryEntryDTO, error) {
	return nil, nil
}

func (s stubLeadService) Transition(ctx context.Context, input leads.TransitionInput) (*leads.LeadDTO, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, input)
	}
	return &leads.LeadDTO{ID: input.LeadID}, nil
}

func (s stubLeadService) Assign(ctx context.Context, input leads.AssignInput) (*leads.LeadDTO, error) {
	if s.assignFn != nil {
		return s.assignFn(ctx, input)
	}
	return &leads.LeadDTO{ID: input.LeadID}, nil
}

func (s stubLeadService) Archive(ctx context.Context, actor access.Actor, leadID uuid.UUID) error {
	return nil
}

type stubIncompleteService struct {
	trackFn  func(ctx context.Context, slug string, input incomplete.TrackInput) (*incomplete.SessionDTO, error)
	exportFn func(ctx context.Context, params incomplete.WorklistParams) (string, []byte, error)
	last     incomplete.WorklistParams
}

func (s *stubIncompleteService) Track(ctx context.Context, slug string, input incomplete.TrackInput) (*incomplete.SessionDTO, error) {
	if s.trackFn != nil {
		return s.trackFn(ctx, slug, input)
	}
	return &incomplete.SessionDTO{}, nil
}

func (s *stubIncompleteService) Worklist(ctx context.Context, params incomplete.WorklistParams) (*incomplete.Worklist, error) {
	s.last = params
	return &incomplete.Worklist{}, nil
}

func (s *stubIncompleteService) ExportWorklist(ctx context.Context, params incomplete.WorklistParams) (string, []byte, error) {
	s.last = params
	if s.exportFn != nil {
		return s.exportFn(ctx, params)
	}
	return "incomplete-leads.xlsx", []byte("xlsx"), nil
}

type stubAuthService struct {
	loginFn   func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error)
	refreshFn func(ctx context.Context, accessToken, refreshToken string) (*auth.TokenPair, error)
	logoutFn  func(ctx context.Context, accessToken string) error
}

func (s stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.loginFn(ctx, req)
}

func (s stubAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*auth.TokenPair, error) {
	return s.refreshFn(ctx, accessToken, refreshToken)
}

func (s stubAuthService) Logout(ctx context.Context, accessToken string) error {
	return s.logoutFn(ctx, accessToken)
}

func dealerActor(role enums.Role) access.Actor {
	dealerID := uuid.New()
	return access.Actor{UserID: uuid.New(), DealerID: &dealerID, Role: role}
}

func withActorContext(req *http.Request, actor access.Actor) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.RouteContext(req.Context())
	if rc == nil {
		rc = chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}
	rc.URLParams.Add(key, value)
	return req
}

type errorEnvelope struct {
	Error struct {
		Code      string         `json:"code"`
		Message   string         `json:"message"`
		Retryable bool           `json:"retryable"`
		Details   map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var envelope errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope
}
