package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reliableworkqueue/workqueue/internal/outbox"
)

func newEnqueueCmd() *cobra.Command {
	var topic, payload, correlationID string

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "enqueue an outbox message outside any business transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			store := outbox.NewPostgresStore(conn)
			id, err := store.Enqueue(context.Background(), conn, topic, []byte(payload), correlationID, nil)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "topic (required)")
	cmd.Flags().StringVar(&payload, "payload", "", "raw payload bytes")
	cmd.Flags().StringVar(&correlationID, "correlation-id", "", "correlation id")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
