// cmd/storeready/wait.go
package main

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tamzrod/storeready/internal/coordinator"
	"github.com/tamzrod/storeready/internal/poller"
	"github.com/tamzrod/storeready/internal/site"
)

func newWaitCmd() *cobra.Command {
	var (
		expectedName string
		once         bool
	)

	cmd := &cobra.Command{
		Use:   "wait <site-id>",
		Short: "Record a pending store switch and wait until the site is ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || siteID <= 0 {
				return errors.Errorf("invalid site id %q", args[0])
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if once {
				return checkOnce(cmd.Context(), a, siteID)
			}

			c, err := a.coordinator()
			if err != nil {
				return err
			}
			res, err := a.runSession(cmd.Context(), func(ctx context.Context) (coordinator.Result, error) {
				return c.Start(ctx, siteID, expectedName)
			})
			if err != nil {
				return err
			}
			printResult(res)
			return outcomeError(siteID, res)
		},
	}

	cmd.Flags().StringVar(&expectedName, "expected-name", "", "store name the site should report once in sync")
	cmd.Flags().BoolVar(&once, "once", false, "query the site once without waiting or recording a pending switch")
	return cmd
}

// checkOnce issues a single query and reports readiness.
func checkOnce(ctx context.Context, a *app, siteID int64) error {
	p, err := poller.Build(poller.SettingsFrom(a.cfg.StoreReady.Poll), siteID, a.querier)
	if err != nil {
		return err
	}

	at := p.PollOnce(ctx)
	if at.Err != nil {
		return errors.Wrapf(at.Err, "query site %d", siteID)
	}

	log.Info().
		Int64("site_id", at.Site.SiteID).
		Str("name", at.Site.Name).
		Bool("connected", at.Site.IsConnected).
		Bool("plugin_active", at.Site.IsRequiredPluginActive).
		Bool("ready", site.IsReady(at.Site)).
		Msg("site checked")

	if !at.Ready {
		return &exitError{code: exitExhausted, msg: "site is not ready"}
	}
	return nil
}
