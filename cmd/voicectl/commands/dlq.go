package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scriptpolish/scriptpolish-api/internal/config"
	"github.com/scriptpolish/scriptpolish-api/internal/queue"
)

// NewDLQCmd creates the dlq command
func NewDLQCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Manage the dead letter queue",
	}

	cmd.AddCommand(newDLQPurgeCmd())

	return cmd
}

func newDLQPurgeCmd() *cobra.Command {
	var retentionFlag time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Purge dead letter queue messages older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			purged, err := jobQueue.PurgeOlderThan(context.Background(), retentionFlag)
			if err != nil {
				return fmt.Errorf("failed to purge dead letter queue: %w", err)
			}

			fmt.Printf("Purged %d messages older than %s\n", purged, retentionFlag)
			return nil
		},
	}

	cmd.Flags().DurationVar(&retentionFlag, "retention", 24*time.Hour, "Keep messages newer than this duration")

	return cmd
}
