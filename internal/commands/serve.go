package commands

import (
	"github.com/spf13/cobra"

	"github.com/budgetbook/budgetbook/internal/api"
	"github.com/budgetbook/budgetbook/internal/ingest"
	"github.com/budgetbook/budgetbook/internal/scheduler"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr, schedule string
	var autoDetect bool
	var origins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: "Serve the JSON API. With an import schedule (flag or ingest.schedule) the\n" +
			"inbox is imported in the background, e.g. --import-schedule '@every 15m'.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := openEnv(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			if addr == "" {
				addr = e.cfg.Server.Addr
			}
			if schedule == "" {
				schedule = e.cfg.Ingest.Schedule
			}
			if !cmd.Flags().Changed("cors-origin") {
				origins = e.cfg.Server.CORSOrigins
			}
			svc := e.ingestService(autoDetect)

			if schedule != "" {
				sched := scheduler.New(e.log)
				job := &ingest.InboxJob{
					Service: svc,
					Inbox:   e.cfg.InboxDir(e.root),
					DataDir: e.root,
					Ctx:     ctx,
				}
				if err := sched.AddJob(schedule, job); err != nil {
					return err
				}
				sched.Start()
				defer sched.Stop()
			}

			srv := api.New(svc, e.ledger, e.registry, e.log, api.WithCORS(origins))
			return srv.Listen(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&autoDetect, "auto-detect", false, "pick the institution of text statements from their contents")
	cmd.Flags().StringVar(&schedule, "import-schedule", "", "cron schedule for importing the inbox (default from config)")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "allowed browser origins (default from config)")

	return cmd
}
