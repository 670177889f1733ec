package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/scriptpolish/scriptpolish-api/internal/config"
	"github.com/scriptpolish/scriptpolish-api/internal/database"
)

// NewExamplesCmd creates the examples command
func NewExamplesCmd() *cobra.Command {
	var userIDFlag string

	cmd := &cobra.Command{
		Use:   "examples",
		Short: "List a user's style examples",
		Long:  "List all style examples in a user's voice corpus, newest first",
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
			ctx := context.Background()

			examples, err := exampleRepo.GetByUserID(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to list examples: %w", err)
			}

			if len(examples) == 0 {
				fmt.Println("No examples in corpus")
				return nil
			}

			fmt.Printf("Corpus for user %s (%d examples):\n", userID, len(examples))
			for _, ex := range examples {
				preview := ex.Text
				if len(preview) > 60 {
					preview = preview[:60] + "..."
				}
				fmt.Printf("  - ID: %s\n", ex.ID)
				fmt.Printf("    Quality: %d  Words: %d  Created: %s\n", ex.QualityScore, ex.WordCount, ex.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Printf("    Text: %s\n", preview)
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&userIDFlag, "user", "u", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
