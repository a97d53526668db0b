package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/JustinBeckwith/flem/pkg/lib/healthserver"
	"github.com/JustinBeckwith/flem/pkg/lib/hotreload"
	"github.com/JustinBeckwith/flem/pkg/lib/runner"
)

const shutdownTimeout = 30 * time.Second

func NewRootCmd(cfg *config) *cobra.Command {
	root := &cobra.Command{
		Use:           "flem [dir]",
		Short:         "Run a project in a container and rebuild it when files change",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHot(cmd.Context(), cmd, cfg, projectDir(args))
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.Engine, "engine", cfg.Engine, "container engine binary")
	flags.StringVar(&cfg.ImageTag, "image-tag", cfg.ImageTag, "image tag (default derived from the project directory)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "log engine commands and exit codes")

	root.Flags().IntVarP(&cfg.Port, "port", "p", cfg.Port, "host port mapped to the app")
	root.Flags().DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "quiet period before restarting after a change")
	root.Flags().StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "serve gRPC health checks on this address")

	root.AddCommand(newBuildCmd(cfg))
	root.AddCommand(newDetectCmd())
	root.AddCommand(newStatusCmd(cfg))
	root.AddCommand(newVersionCmd())

	return root
}

func projectDir(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "."
}

func engineOptions(cfg *config) []runner.Option {
	opts := []runner.Option{runner.WithBinary(cfg.Engine)}
	if cfg.ImageTag != "" {
		opts = append(opts, runner.WithImageTag(cfg.ImageTag))
	}
	return opts
}

// runHot runs the hot reload loop until ctx is cancelled, then stops the
// container.
func runHot(ctx context.Context, cmd *cobra.Command, cfg *config, dir string) error {
	s := newSession(cmd.ErrOrStderr(), cfg.Verbose)
	defer s.Close()

	if cfg.HealthAddr != "" {
		hs, err := healthserver.New(cfg.HealthAddr)
		if err != nil {
			return err
		}
		go func() {
			if err := hs.Serve(); err != nil {
				s.logger.Error("health server stopped", "err", err)
			}
		}()
		defer hs.Stop()
		s.tee(hs)
		s.logger.Info("health endpoint listening", "addr", hs.Addr().String())
	}

	engine := runner.NewEngine(s.sink, engineOptions(cfg)...)
	c := hotreload.New(engine, s.sink, hotreload.WithDebounce(cfg.Debounce))
	if err := c.RunHot(ctx, dir, cfg.Port); err != nil {
		return err
	}

	<-ctx.Done()
	s.logger.Info("Stopping container...")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return c.Shutdown(sctx)
}
