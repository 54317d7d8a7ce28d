// cmd/storeready/resume.go
package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tamzrod/storeready/internal/coordinator"
)

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume waiting for the recorded pending store switch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.coordinator()
			if err != nil {
				return err
			}

			var (
				found  bool
				siteID int64
			)
			if rec, ok, err := a.store.Load(cmd.Context()); err == nil && ok {
				siteID = rec.SiteID
			}

			res, err := a.runSession(cmd.Context(), func(ctx context.Context) (coordinator.Result, error) {
				res, ok, err := c.Resume(ctx)
				found = ok
				return res, err
			})
			if err != nil {
				return err
			}
			if !found {
				log.Info().Msg("no pending store switch")
				return nil
			}
			printResult(res)
			return outcomeError(siteID, res)
		},
	}
}
