package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/scriptpolish/scriptpolish-api/internal/config"
	"github.com/scriptpolish/scriptpolish-api/internal/database"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
	"github.com/scriptpolish/scriptpolish-api/internal/services/voice"
)

// NewProfileCmd creates the profile command
func NewProfileCmd() *cobra.Command {
	var userIDFlag string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show a user's voice profile status",
		Long:  "Show the state, freshness, and extracted patterns of a user's voice profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userIDFlag)
			if err != nil {
				return fmt.Errorf("invalid user ID: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			exampleRepo := database.NewExampleRepository(db)
			profileRepo := database.NewProfileRepository(db)
			gate := voice.NewGate(exampleRepo, profileRepo)
			ctx := context.Background()

			status, err := gate.CheckUsability(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to check profile: %w", err)
			}

			fmt.Printf("Profile for user %s:\n", userID)
			fmt.Printf("  State: %s\n", status.State)
			fmt.Printf("  Examples: %d\n", status.ExampleCount)
			if status.ExtractedAt != nil {
				fmt.Printf("  Extracted: %s\n", status.ExtractedAt.Format("2006-01-02 15:04:05"))
			}

			if status.State == models.ProfileStateReady {
				fresh, err := gate.IsFresh(ctx, userID)
				if err != nil {
					return fmt.Errorf("failed to check freshness: %w", err)
				}
				fmt.Printf("  Fresh: %t\n", fresh)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&userIDFlag, "user", "u", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
