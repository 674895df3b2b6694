package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lathe/internal/textutil"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the current status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().Status(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status:   %s\n", textutil.Label(status.Status))
			fmt.Fprintf(out, "Progress: %s\n", formatProgress(status.Progress))
			fmt.Fprintf(out, "Stage:    %s\n", status.Stage)
			return nil
		},
	}
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var destDir string

	cmd := &cobra.Command{
		Use:   "download <job-id>",
		Short: "Download the reconstructed model for a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := ctx.client().Download(args[0], destDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&destDir, "output", "o", ".", "Directory to save the artifact into")
	return cmd
}
