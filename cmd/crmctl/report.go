package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/internal/funnel"
	"github.com/angelmondragon/dealercrm-backend/internal/incomplete"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
)

// operatorID identifies CLI-originated reads in access logs.
var operatorID = uuid.MustParse("00000000-0000-0000-0000-00000000c7c1")

func operatorActor() access.Actor {
	return access.Actor{UserID: operatorID, Role: enums.RoleSuperAdmin}
}

func parseDealerFlag(value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid dealer id %q: %w", value, err)
	}
	return &id, nil
}

func funnelCmd() *cobra.Command {
	var dealer, from, to, preset string
	cmd := &cobra.Command{
		Use:   "funnel",
		Short: "Print a funnel report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			dealerID, err := parseDealerFlag(dealer)
			if err != nil {
				return err
			}
			window, err := funnel.ResolveWindow(from, to, preset, time.Now().UTC())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			deps, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer deps.close(ctx)

			svc, err := deps.funnelService()
			if err != nil {
				return err
			}
			report, err := svc.Aggregate(ctx, funnel.Params{
				Actor:    operatorActor(),
				DealerID: dealerID,
				Window:   window,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&dealer, "dealer", "", "dealer id (omit for all dealers)")
	cmd.Flags().StringVar(&from, "from", "", "window start, RFC3339")
	cmd.Flags().StringVar(&to, "to", "", "window end, RFC3339")
	cmd.Flags().StringVar(&preset, "preset", "", "window preset (7d, 30d, 90d)")
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		dealer     string
		priority   string
		hasContact bool
		limit      int
		outPath    string
	)
	cmd := &cobra.Command{
		Use:   "export-worklist",
		Short: "Write the incomplete-lead worklist as an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			dealerID, err := parseDealerFlag(dealer)
			if err != nil {
				return err
			}
			params := incomplete.WorklistParams{
				Actor:    operatorActor(),
				DealerID: dealerID,
				Priority: priority,
				Limit:    limit,
			}
			if cmd.Flags().Changed("has-contact") {
				params.HasContact = &hasContact
			}

			ctx := cmd.Context()
			deps, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer deps.close(ctx)

			svc, err := deps.incompleteService()
			if err != nil {
				return err
			}
			name, body, err := svc.ExportWorklist(ctx, params)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = name
			}
			if err := os.WriteFile(outPath, body, 0o644); err != nil {
				return fmt.Errorf("write workbook: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", outPath, len(body))
			return nil
		},
	}
	cmd.Flags().StringVar(&dealer, "dealer", "", "dealer id (omit for all dealers)")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority (high, medium, low)")
	cmd.Flags().BoolVar(&hasContact, "has-contact", false, "filter by presence of contact details")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (defaults to the export file name)")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
