package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/repository"
	"github.com/threadline/configurator-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Create an admin account",
	Long:  `Create an admin account. Admins can create tools through the API.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(database *gorm.DB) error {
			user, err := createAdmin(cmd.Context(), repository.NewUserRepository(database), adminEmail, adminPassword, adminName)
			if err != nil {
				return err
			}
			cmd.Printf("Admin %s created with id %d\n", user.Email, user.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)

	adminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email (required)")
	adminCmd.Flags().StringVar(&adminPassword, "password", "", "Admin password, at least 6 characters (required)")
	adminCmd.Flags().StringVar(&adminName, "name", "Administrator", "Display name")
	_ = adminCmd.MarkFlagRequired("email")
	_ = adminCmd.MarkFlagRequired("password")
}

func createAdmin(ctx context.Context, users repository.UserRepository, email, password, name string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("email is required")
	}
	if len(password) < 6 {
		return nil, errors.New("password must be at least 6 characters")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		Role:         model.RoleAdmin,
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("an account with email %s already exists", email)
		}
		return nil, err
	}
	return user, nil
}
