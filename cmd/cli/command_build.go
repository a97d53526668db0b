package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JustinBeckwith/flem/pkg/lib/runner"
)

func newBuildCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Generate build files for a project and build its image once",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession(cmd.ErrOrStderr(), cfg.Verbose)
			defer s.Close()

			engine := runner.NewEngine(s.sink, engineOptions(cfg)...)
			res, err := engine.Build(projectDir(args))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.ImageTag)
			return nil
		},
	}
	return cmd
}
