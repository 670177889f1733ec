package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/scriptpolish/scriptpolish-api/internal/config"
	"github.com/scriptpolish/scriptpolish-api/internal/queue"
)

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	var userIDFlag string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Enqueue a voice analysis job for a user",
		Long:  "Enqueue a voice analysis job for a user; the worker recomputes the profile from the current corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userIDFlag)
			if err != nil {
				return fmt.Errorf("invalid user ID: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() {
				if err := jobQueue.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close RabbitMQ connection: %v\n", err)
				}
			}()

			job := queue.NewJob(queue.JobTypeVoiceAnalysis, userID)
			if err := jobQueue.Enqueue(context.Background(), job); err != nil {
				return fmt.Errorf("failed to enqueue analysis job: %w", err)
			}

			fmt.Printf("Enqueued voice analysis job %s for user %s\n", job.ID, userID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userIDFlag, "user", "u", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
