package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealercrm-backend/internal/users"
	"github.com/angelmondragon/dealercrm-backend/pkg/config"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	"github.com/angelmondragon/dealercrm-backend/pkg/security"
)

const bootstrapPasswordLength = 20

type adminInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

func bootstrapAdminCmd() *cobra.Command {
	var input adminInput
	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create the first super admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer deps.close(ctx)

			user, password, err := bootstrapSuperAdmin(ctx, users.NewRepository(deps.db.DB()), deps.cfg.Password, input, time.Now().UTC())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created super admin %s (%s)\n", user.Email, user.ID)
			if input.Password == "" {
				fmt.Fprintf(out, "temporary password: %s\n", password)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Email, "email", "", "account email")
	cmd.Flags().StringVar(&input.FirstName, "first-name", "Platform", "first name")
	cmd.Flags().StringVar(&input.LastName, "last-name", "Admin", "last name")
	cmd.Flags().StringVar(&input.Password, "password", "", "password (generated when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// bootstrapSuperAdmin creates a dealer-less super admin and returns the
// plaintext password that was hashed.
func bootstrapSuperAdmin(ctx context.Context, repo *users.Repository, pw config.PasswordConfig, input adminInput, now time.Time) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !strings.Contains(email, "@") {
		return nil, "", errors.New("valid email required")
	}
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" || lastName == "" {
		return nil, "", errors.New("first and last name are required")
	}

	existing, err := repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, "", fmt.Errorf("user %s already exists", email)
	}

	password := input.Password
	if password == "" {
		password, err = security.GenerateTempPassword(bootstrapPasswordLength)
		if err != nil {
			return nil, "", err
		}
	}
	hash, err := security.HashPassword(password, pw)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         enums.RoleSuperAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}
	return user, password, nil
}
