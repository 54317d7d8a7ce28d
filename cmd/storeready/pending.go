// cmd/storeready/pending.go
package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tamzrod/storeready/internal/pending"
)

func newPendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Inspect or clear the recorded pending store switch",
	}
	cmd.AddCommand(newPendingShowCmd(), newPendingClearCmd())
	return cmd
}

func openStore() (*pending.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return pending.Open(cfg.StoreReady.State.DBPath)
}

func newPendingShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the pending store switch, if any",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			rec, ok, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("no pending store switch")
				return nil
			}
			fmt.Printf("site_id=%d expected_name=%q pending_since=%s\n",
				rec.SiteID, rec.ExpectedName, rec.CreatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func newPendingClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the pending store switch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			log.Info().Str("db_path", store.Path()).Msg("pending store switch cleared")
			return nil
		},
	}
}
