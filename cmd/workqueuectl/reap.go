package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reliableworkqueue/workqueue/internal/inbox"
	"github.com/reliableworkqueue/workqueue/internal/outbox"
)

func newReapCmd() *cobra.Command {
	var resource string

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "force an out-of-cycle reap of expired leases for a resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			var n int64
			switch resource {
			case "outbox":
				n, err = outbox.NewPostgresStore(conn).Reap(context.Background())
			case "inbox":
				n, err = inbox.NewPostgresStore(conn).Reap(context.Background())
			default:
				return fmt.Errorf("unknown resource %q (want outbox|inbox)", resource)
			}
			if err != nil {
				return err
			}
			fmt.Printf("reaped %d rows\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&resource, "resource", "", "resource to reap: outbox|inbox (required)")
	_ = cmd.MarkFlagRequired("resource")
	return cmd
}
