package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/reliableworkqueue/workqueue/internal/inbox"
	"github.com/reliableworkqueue/workqueue/internal/outbox"
)

func newCleanupCmd() *cobra.Command {
	var resource, retention string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "delete terminal rows older than retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.ParseDuration(retention)
			if err != nil {
				return fmt.Errorf("invalid --retention: %w", err)
			}

			conn, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			var n int64
			switch resource {
			case "outbox":
				n, err = outbox.NewPostgresStore(conn).Cleanup(context.Background(), d)
			case "inbox":
				n, err = inbox.NewPostgresStore(conn).Cleanup(context.Background(), d)
			default:
				return fmt.Errorf("unknown resource %q (want outbox|inbox)", resource)
			}
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d rows\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&resource, "resource", "", "resource to clean up: outbox|inbox (required)")
	cmd.Flags().StringVar(&retention, "retention", "168h", "retention duration")
	_ = cmd.MarkFlagRequired("resource")
	return cmd
}
