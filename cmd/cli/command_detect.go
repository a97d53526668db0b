package main

import (
	"github.com/spf13/cobra"

	"github.com/JustinBeckwith/flem/pkg/lib/project"
)

func newDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect [dir]",
		Short: "Show the runtime flem would use for a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := project.Resolve(projectDir(args))
			if err != nil {
				return err
			}
			printResolution(cmd.OutOrStdout(), res)
			return nil
		},
	}
	return cmd
}
