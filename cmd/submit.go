package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pollination/guides/internal/pollination"
	"github.com/pollination/guides/internal/workflow"
)

// newSubmitCmd creates and configures the 'submit' subcommand.
// This command runs the full study sequence from the guides: create the
// demo project, attach the recipe, upload the model files, submit one job
// covering all of them, wait for it to finish and download every run output.
func newSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Run the full demo study end to end",
		Long: `Creates the configured project, attaches the daylight-factor recipe,
uploads the model files, submits a job with one run per model, polls until
the job settles and downloads the first output of every run as
{run_id}-{output_name}.zip.

The job may outlive the polling budget; in that case whatever runs already
finished are downloaded and the command still succeeds.`,

		RunE: runSubmitCommand,
	}
	cmd.Flags().String("models-dir", "", "directory holding the model files (default from config)")
	return cmd
}

func runSubmitCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.GetConfig()

	modelsDir := cfg.Demo.ModelsDir
	if flagDir, err := cmd.Flags().GetString("models-dir"); err == nil && flagDir != "" {
		modelsDir = flagDir
	}

	runner := workflow.New(
		appInstance.GetClient(),
		appInstance.GetOutputs(),
		appInstance.GetSleeper(),
		workflow.Config{
			Project: pollination.ProjectCreate{
				Name:        cfg.Demo.Project.Name,
				Description: cfg.Demo.Project.Description,
				Public:      cfg.Demo.Project.Public,
			},
			Recipe: pollination.RecipeFilter{
				Owner: cfg.Demo.Recipe.Owner,
				Name:  cfg.Demo.Recipe.Name,
				Tag:   cfg.Demo.Recipe.Tag,
			},
			InputName: cfg.Demo.InputName,
			Models:    cfg.Demo.Models,
			ModelsDir: modelsDir,
			Poll: pollination.PollConfig{
				Attempts: cfg.Poll.Attempts,
				Interval: cfg.Poll.Interval,
			},
		},
		appInstance.GetLogger(),
	)

	report, err := runner.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run study: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "job %s finished with status %q\n", report.JobID, report.Status)
	fmt.Fprintf(out, "models uploaded: %d, runs seen: %d, outputs downloaded: %d\n",
		report.ModelsUploaded, report.RunsSeen, report.OutputsDownloaded)
	if report.RunsSkipped > 0 {
		fmt.Fprintf(out, "runs without outputs yet: %d\n", report.RunsSkipped)
	}
	return nil
}
