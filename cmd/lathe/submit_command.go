package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lathe/internal/jobs"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".heic": {},
	".tif":  {},
	".tiff": {},
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var mode string
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit <image|directory>...",
		Short: "Submit an image batch for reconstruction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := collectImagePaths(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no image files found in %s", strings.Join(args, ", "))
			}

			client := ctx.client()
			resp, err := client.Submit(mode, paths)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submitted %d images as job %s\n", len(paths), resp.JobID)

			if !wait {
				return nil
			}
			return pollUntilTerminal(cmd, client, resp.JobID)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "object", "Capture mode (object or area)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the job reaches a terminal state")
	return cmd
}

func pollUntilTerminal(cmd *cobra.Command, client *apiClient, jobID string) error {
	out := cmd.OutOrStdout()
	lastStage := ""
	for {
		status, err := client.Status(jobID)
		if err != nil {
			return err
		}
		if status.Stage != lastStage {
			fmt.Fprintf(out, "%s %s\n", formatProgress(status.Progress), status.Stage)
			lastStage = status.Stage
		}
		if jobs.Status(status.Status).IsTerminal() {
			if status.Status == string(jobs.StatusFailed) {
				return fmt.Errorf("job %s failed: %s", jobID, status.Stage)
			}
			fmt.Fprintf(out, "Job %s completed\n", jobID)
			return nil
		}
		time.Sleep(time.Second)
	}
}

// collectImagePaths expands directories into their image files and keeps
// explicit file arguments as-is.
func collectImagePaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if _, ok := imageExtensions[ext]; ok {
				paths = append(paths, filepath.Join(arg, entry.Name()))
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}
