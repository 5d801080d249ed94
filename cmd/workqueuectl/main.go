// Command workqueuectl is an operator CLI over the core stores: manual
// enqueue, reap, and cleanup during incident response (spec §6 "Surrounding
// collaborators").
package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reliableworkqueue/workqueue/internal/db"
)

var dsnFlag string

var rootCmd = &cobra.Command{
	Use:   "workqueuectl",
	Short: "operator CLI for the reliable work queue core",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", os.Getenv("WORKQUEUE_POSTGRES_DSN"), "Postgres DSN (defaults to WORKQUEUE_POSTGRES_DSN)")

	rootCmd.AddCommand(newEnqueueCmd())
	rootCmd.AddCommand(newReapCmd())
	rootCmd.AddCommand(newCleanupCmd())
	rootCmd.AddCommand(newLockCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB() (*sql.DB, error) {
	if dsnFlag == "" {
		return nil, fmt.Errorf("--dsn or WORKQUEUE_POSTGRES_DSN is required")
	}
	return db.Open(dsnFlag)
}
