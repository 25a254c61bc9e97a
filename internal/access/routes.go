package access

import "github.com/angelmondragon/dealercrm-backend/pkg/enums"

// Route identifies an authenticated endpoint as "METHOD pattern".
type Route string

const (
	RouteAccessEvaluate     Route = "POST /api/v1/access/evaluate"
	RouteLeadsList          Route = "GET /api/v1/leads"
	RouteLeadsCreate        Route = "POST /api/v1/leads"
	RouteLeadGet            Route = "GET /api/v1/leads/{leadId}"
	RouteLeadHistory        Route = "GET /api/v1/leads/{leadId}/history"
	RouteLeadTransition     Route = "POST /api/v1/leads/{leadId}/transition"
	RouteLeadAssign         Route = "POST /api/v1/leads/{leadId}/assign"
	RouteLeadArchive        Route = "DELETE /api/v1/leads/{leadId}"
	RouteFunnel             Route = "GET /api/v1/analytics/funnel"
	RouteIncompleteList     Route = "GET /api/v1/incomplete-leads"
	RouteIncompleteExport   Route = "GET /api/v1/incomplete-leads/export"
	RouteUsersList          Route = "GET /api/v1/users"
	RouteUsersCreate        Route = "POST /api/v1/users"
	RouteUserRole           Route = "POST /api/v1/users/{userId}/role"
	RouteUserActive         Route = "POST /api/v1/users/{userId}/active"
	RouteAdminDealersList   Route = "GET /api/admin/v1/dealers"
	RouteAdminDealersCreate Route = "POST /api/admin/v1/dealers"
	RouteAdminDealerActive  Route = "POST /api/admin/v1/dealers/{dealerId}/active"
)

var (
	allRoles   = []enums.Role{enums.RoleSuperAdmin, enums.RoleDealerAdmin, enums.RoleSalesManager, enums.RoleSalesRep}
	leadStaff  = []enums.Role{enums.RoleSuperAdmin, enums.RoleDealerAdmin, enums.RoleSalesManager}
	userAdmins = []enums.Role{enums.RoleSuperAdmin, enums.RoleDealerAdmin}
	assigners  = []enums.Role{enums.RoleSuperAdmin, enums.RoleSalesManager}
	platform   = []enums.Role{enums.RoleSuperAdmin}
)

// routeRoles is consulted before any handler runs; the evaluator still
// scopes the request afterwards.
var routeRoles = map[Route][]enums.Role{
	RouteAccessEvaluate:     allRoles,
	RouteLeadsList:          allRoles,
	RouteLeadsCreate:        leadStaff,
	RouteLeadGet:            allRoles,
	RouteLeadHistory:        allRoles,
	RouteLeadTransition:     allRoles,
	RouteLeadAssign:         assigners,
	RouteLeadArchive:        leadStaff,
	RouteFunnel:             allRoles,
	RouteIncompleteList:     leadStaff,
	RouteIncompleteExport:   leadStaff,
	RouteUsersList:          userAdmins,
	RouteUsersCreate:        userAdmins,
	RouteUserRole:           userAdmins,
	RouteUserActive:         userAdmins,
	RouteAdminDealersList:   platform,
	RouteAdminDealersCreate: platform,
	RouteAdminDealerActive:  platform,
}

// CanAccessRoute reports whether role appears on the route's allow-list.
// Unmapped routes are denied.
func CanAccessRoute(role enums.Role, route Route) bool {
	for _, allowed := range routeRoles[route] {
		if allowed == role {
			return true
		}
	}
	return false
}

// Routes returns every mapped route.
func Routes() []Route {
	out := make([]Route, 0, len(routeRoles))
	for route := range routeRoles {
		out = append(out, route)
	}
	return out
}
