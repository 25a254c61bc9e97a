package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
)

func matrixCmd() *cobra.Command {
	var routesOnly bool
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Print the role permission matrix",
		Long: `Evaluates every action/resource pair for each role acting inside its own
dealership on a resource it owns, then prints the route allow-list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !routesOnly {
				if err := writeActionMatrix(out); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return writeRouteMatrix(out)
		},
	}
	cmd.Flags().BoolVar(&routesOnly, "routes", false, "only print the route allow-list")
	return cmd
}

// matrixActor returns an actor of role scoped to dealerID. Super admins carry
// no dealer.
func matrixActor(role enums.Role, dealerID uuid.UUID) access.Actor {
	actor := access.Actor{UserID: uuid.New(), Role: role}
	if role != enums.RoleSuperAdmin {
		actor.DealerID = &dealerID
	}
	return actor
}

func writeActionMatrix(w io.Writer) error {
	roles := enums.Roles()
	dealerID := uuid.New()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"RESOURCE", "ACTION"}
	for _, role := range roles {
		header = append(header, strings.ToUpper(role.String()))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, resource := range access.ResourceTypes() {
		for _, action := range access.Actions() {
			row := []string{string(resource), string(action)}
			for _, role := range roles {
				actor := matrixActor(role, dealerID)
				target := access.Resource{Type: resource, DealerID: &dealerID, OwnerID: &actor.UserID}
				if action == access.ActionManageRoles {
					target.TargetRole = enums.RoleSalesRep
				}
				row = append(row, string(access.Evaluate(actor, action, target)))
			}
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
	}
	return tw.Flush()
}

func writeRouteMatrix(w io.Writer) error {
	roles := enums.Roles()
	routes := access.Routes()
	sort.Slice(routes, func(i, j int) bool { return routes[i] < routes[j] })

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"ROUTE"}
	for _, role := range roles {
		header = append(header, strings.ToUpper(role.String()))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, route := range routes {
		row := []string{string(route)}
		for _, role := range roles {
			if access.CanAccessRoute(role, route) {
				row = append(row, "allow")
			} else {
				row = append(row, "-")
			}
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
