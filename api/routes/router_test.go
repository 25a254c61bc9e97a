package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/internal/auth"
	"github.com/angelmondragon/dealercrm-backend/internal/dealers"
	"github.com/angelmondragon/dealercrm-backend/internal/funnel"
	"github.com/angelmondragon/dealercrm-backend/internal/incomplete"
	"github.com/angelmondragon/dealercrm-backend/internal/leads"
	"github.com/angelmondragon/dealercrm-backend/internal/users"
	pkgAuth "github.com/angelmondragon/dealercrm-backend/pkg/auth"
	"github.com/angelmondragon/dealercrm-backend/pkg/auth/session"
	"github.com/angelmondragon/dealercrm-backend/pkg/config"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/angelmondragon/dealercrm-backend/pkg/metrics"
	"github.com/angelmondragon/dealercrm-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

func (stubAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*auth.TokenPair, error) {
	return &auth.TokenPair{}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessToken string) error {
	return nil
}

// stubUsersService resolves actors from the map so tests control the role
// seen by the route gate.
type stubUsersService struct {
	actors map[uuid.UUID]access.Actor
}

func (s stubUsersService) Create(ctx context.Context, actor access.Actor, input users.CreateUserInput) (*users.CreatedUser, error) {
	return &users.CreatedUser{}, nil
}

func (s stubUsersService) ChangeRole(ctx context.Context, actor access.Actor, userID uuid.UUID, role string) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}

func (s stubUsersService) SetActive(ctx context.Context, actor access.Actor, userID uuid.UUID, active bool) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}

func (s stubUsersService) List(ctx context.Context, params users.ListParams) ([]users.UserDTO, error) {
	return nil, nil
}

func (s stubUsersService) ResolveActor(ctx context.Context, userID uuid.UUID) (access.Actor, error) {
	actor, ok := s.actors[userID]
	if !ok {
		return access.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "account unavailable")
	}
	return actor, nil
}

type stubDealersService struct{}

func (stubDealersService) Create(ctx context.Context, actor access.Actor, slug, name string) (*dealers.DealerDTO, error) {
	return &dealers.DealerDTO{Slug: slug, Name: name}, nil
}

func (stubDealersService) SetActive(ctx context.Context, actor access.Actor, dealerID uuid.UUID, active bool) (*dealers.DealerDTO, error) {
	return &dealers.DealerDTO{ID: dealerID, IsActive: active}, nil
}

func (stubDealersService) List(ctx context.Context, actor access.Actor) ([]dealers.DealerDTO, error) {
	return []dealers.DealerDTO{}, nil
}

type stubLeadsService struct{}

func (stubLeadsService) CreatePublic(ctx context.Context, slug string, input leads.CreateLeadInput) (*leads.LeadDTO, error) {
	return &leads.LeadDTO{ID: uuid.New(), Status: enums.LeadStatusNew}, nil
}

func (stubLeadsService) Create(ctx context.Context, actor access.Actor, input leads.CreateLeadInput) (*leads.LeadDTO, error) {
	return &leads.LeadDTO{ID: uuid.New()}, nil
}

func (stubLeadsService) Get(ctx context.Context, actor access.Actor, leadID uuid.UUID) (*leads.LeadDTO, error) {
	return &leads.LeadDTO{ID: leadID}, nil
}

func (stubLeadsService) List(ctx context.Context, params leads.ListParams) (*leads.LeadList, error) {
	return &leads.LeadList{}, nil
}

func (stubLeadsService) History(ctx context.Context, actor access.Actor, leadID uuid.UUID) ([]leads.HistoryEntryDTO, error) {
	return nil, nil
}

func (stubLeadsService) Transition(ctx context.Context, input leads.TransitionInput) (*leads.LeadDTO, error) {
	return &leads.LeadDTO{ID: input.LeadID}, nil
}

func (stubLeadsService) Assign(ctx context.Context, input leads.AssignInput) (*leads.LeadDTO, error) {
	return &leads.LeadDTO{ID: input.LeadID}, nil
}

func (stubLeadsService) Archive(ctx context.Context, actor access.Actor, leadID uuid.UUID) error {
	return nil
}

type stubIncompleteService struct{}

func (stubIncompleteService) Track(ctx context.Context, slug string, input incomplete.TrackInput) (*incomplete.SessionDTO, error) {
	return &incomplete.SessionDTO{}, nil
}

func (stubIncompleteService) Worklist(ctx context.Context, params incomplete.WorklistParams) (*incomplete.Worklist, error) {
	return &incomplete.Worklist{}, nil
}

func (stubIncompleteService) ExportWorklist(ctx context.Context, params incomplete.WorklistParams) (string, []byte, error) {
	return "worklist.xlsx", []byte("x"), nil
}

type stubFunnelService struct{}

func (stubFunnelService) Aggregate(ctx context.Context, params funnel.Params) (*funnel.Report, error) {
	return &funnel.Report{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "dealercrm-test",
			ExpirationMinutes: 5,
		},
	}
}

type testRouter struct {
	handler http.Handler
	cfg     *config.Config
	users   stubUsersService
}

func newTestRouter(t *testing.T) *testRouter {
	t.Helper()
	cfg := testConfig()
	usersSvc := stubUsersService{actors: map[uuid.UUID]access.Actor{}}
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	handler := NewRouter(
		cfg,
		logg,
		metrics.NewRegistry(),
		stubPinger{},
		(*redis.Client)(nil),
		stubSessionManager{},
		stubAuthService{},
		usersSvc,
		stubDealersService{},
		stubLeadsService{},
		stubIncompleteService{},
		stubFunnelService{},
	)
	return &testRouter{handler: handler, cfg: cfg, users: usersSvc}
}

// tokenFor registers an actor with the resolver and mints a matching token.
func (tr *testRouter) tokenFor(t *testing.T, role enums.Role) string {
	t.Helper()
	actor := access.Actor{UserID: uuid.New(), Role: role}
	if role != enums.RoleSuperAdmin {
		dealerID := uuid.New()
		actor.DealerID = &dealerID
	}
	tr.users.actors[actor.UserID] = actor

	token, err := pkgAuth.MintAccessToken(tr.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   actor.UserID,
		DealerID: actor.DealerID,
		Role:     role,
		JTI:      session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (tr *testRouter) do(method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	tr.handler.ServeHTTP(resp, req)
	return resp
}

func TestHealthLive(t *testing.T) {
	tr := newTestRouter(t)
	resp := tr.do(http.MethodGet, "/health/live", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReadyWithoutRedis(t *testing.T) {
	tr := newTestRouter(t)
	resp := tr.do(http.MethodGet, "/health/ready", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestMetricsEndpointExposesRouteCounters(t *testing.T) {
	tr := newTestRouter(t)
	tr.do(http.MethodGet, "/health/live", "", "")

	resp := tr.do(http.MethodGet, "/metrics", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "crm_http_requests_total") {
		t.Fatal("expected http request counter in exposition")
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	tr := newTestRouter(t)
	resp := tr.do(http.MethodGet, "/api/v1/leads", "", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsUnknownSubject(t *testing.T) {
	tr := newTestRouter(t)
	token, err := pkgAuth.MintAccessToken(tr.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.RoleSuperAdmin,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	resp := tr.do(http.MethodGet, "/api/v1/leads", token, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unresolvable subject got %d", resp.Code)
	}
}

func TestLeadRoutesForRep(t *testing.T) {
	tr := newTestRouter(t)
	token := tr.tokenFor(t, enums.RoleSalesRep)
	leadID := uuid.NewString()

	if resp := tr.do(http.MethodGet, "/api/v1/leads", token, ""); resp.Code != http.StatusOK {
		t.Fatalf("expected rep to list leads got %d", resp.Code)
	}
	if resp := tr.do(http.MethodPost, "/api/v1/leads/"+leadID+"/transition", token, `{"status":"set","version":"v"}`); resp.Code != http.StatusOK {
		t.Fatalf("expected rep to transition got %d", resp.Code)
	}
	if resp := tr.do(http.MethodPost, "/api/v1/leads/"+leadID+"/assign", token, `{"user_id":"`+uuid.NewString()+`"}`); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for rep assign got %d", resp.Code)
	}
	if resp := tr.do(http.MethodDelete, "/api/v1/leads/"+leadID, token, ""); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for rep archive got %d", resp.Code)
	}
	if resp := tr.do(http.MethodGet, "/api/v1/incomplete-leads", token, ""); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for rep worklist got %d", resp.Code)
	}
}

func TestManagerCanAssign(t *testing.T) {
	tr := newTestRouter(t)
	token := tr.tokenFor(t, enums.RoleSalesManager)
	resp := tr.do(http.MethodPost, "/api/v1/leads/"+uuid.NewString()+"/assign", token, `{"user_id":"`+uuid.NewString()+`"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for manager assign got %d", resp.Code)
	}
}

func TestUserManagementRequiresAdmin(t *testing.T) {
	tr := newTestRouter(t)
	manager := tr.tokenFor(t, enums.RoleSalesManager)
	if resp := tr.do(http.MethodGet, "/api/v1/users", manager, ""); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager got %d", resp.Code)
	}
	admin := tr.tokenFor(t, enums.RoleDealerAdmin)
	if resp := tr.do(http.MethodGet, "/api/v1/users", admin, ""); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for dealer admin got %d", resp.Code)
	}
}

func TestAdminDealersRequireSuperAdmin(t *testing.T) {
	tr := newTestRouter(t)
	admin := tr.tokenFor(t, enums.RoleDealerAdmin)
	if resp := tr.do(http.MethodGet, "/api/admin/v1/dealers", admin, ""); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for dealer admin got %d", resp.Code)
	}
	super := tr.tokenFor(t, enums.RoleSuperAdmin)
	if resp := tr.do(http.MethodGet, "/api/admin/v1/dealers", super, ""); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for super admin got %d", resp.Code)
	}
	if resp := tr.do(http.MethodPost, "/api/admin/v1/dealers", super, `{"slug":"acme-motors","name":"Acme Motors"}`); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating dealer got %d", resp.Code)
	}
}

func TestPublicIntakeIsUnauthenticated(t *testing.T) {
	tr := newTestRouter(t)
	resp := tr.do(http.MethodPost, "/api/public/dealers/acme-motors/leads", "", `{"contact":{"phone":"555-0100"},"consent":true}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	resp = tr.do(http.MethodPost, "/api/public/dealers/acme-motors/incomplete-leads", "", `{"session_key":"s-1","phone":"555"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestLoginFailureIsUnauthorized(t *testing.T) {
	tr := newTestRouter(t)
	resp := tr.do(http.MethodPost, "/api/v1/auth/login", "", `{"email":"a@b.test","password":"x"}`)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
