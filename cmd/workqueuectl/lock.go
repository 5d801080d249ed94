package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reliableworkqueue/workqueue/internal/lock"
)

func newLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "inspect and force-release distributed locks",
	}
	cmd.AddCommand(newLockReleaseCmd())
	cmd.AddCommand(newLockCleanupCmd())
	return cmd
}

func newLockReleaseCmd() *cobra.Command {
	var name, ownerToken string

	cmd := &cobra.Command{
		Use:   "release",
		Short: "release a distributed lock by resource name and owner token",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			return lock.NewPostgresStore(conn).Release(context.Background(), name, ownerToken)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "resource name (required)")
	cmd.Flags().StringVar(&ownerToken, "owner-token", "", "owner token that currently holds the lock (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("owner-token")
	return cmd
}

func newLockCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-expired",
		Short: "null out ownership on every lock whose lease has expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			n, err := lock.NewPostgresStore(conn).CleanupExpired(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("cleaned up %d locks\n", n)
			return nil
		},
	}
}
