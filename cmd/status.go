package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newStatusCmd creates and configures the 'status' subcommand. Without an
// argument it lists the project's jobs; with a job id it shows that job's
// state, its runs and the artifacts it wrote to project storage.
func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Inspect jobs and runs in the demo project",
		Long: `Lists the jobs of the configured project, or, when a job id is given,
shows the job's scheduler status, the runs it produced and the artifacts it
left in project storage.`,

		Args: cobra.MaximumNArgs(1),
		RunE: runStatusCommand,
	}
	cmd.Flags().String("project", "", "project to inspect (default from config)")
	return cmd
}

func runStatusCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	client := appInstance.GetClient()
	project := projectFlag(cmd, appInstance)
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		jobs, err := client.ListJobs(cmd.Context(), project)
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}
		fmt.Fprintf(out, "%d job(s) in %s/%s\n", jobs.TotalCount, client.Org(), project)
		for _, job := range jobs.Resources {
			fmt.Fprintf(out, "  %s  %s\n", job.ID, job.State())
		}
		return nil
	}

	jobID := args[0]
	job, err := client.GetJob(cmd.Context(), project, jobID)
	if err != nil {
		return fmt.Errorf("fetch job %s: %w", jobID, err)
	}
	fmt.Fprintf(out, "job %s: %s\n", job.ID, job.State())

	runs, err := client.ListRuns(cmd.Context(), project, jobID)
	if err != nil {
		return fmt.Errorf("list runs for job %s: %w", jobID, err)
	}
	for _, run := range runs.Resources {
		status := ""
		if run.Status != nil {
			status = run.Status.Status
		}
		names := make([]string, 0, len(run.Outputs()))
		for _, output := range run.Outputs() {
			names = append(names, output.Name)
		}
		fmt.Fprintf(out, "  run %s: %s  outputs=[%s]\n", run.ID, status, strings.Join(names, ", "))
	}

	raw, err := client.ListJobArtifacts(cmd.Context(), project, jobID)
	if err != nil {
		return fmt.Errorf("list artifacts for job %s: %w", jobID, err)
	}
	for _, key := range artifactKeys(raw) {
		fmt.Fprintf(out, "  artifact %s\n", key)
	}
	return nil
}

// artifactKeys pulls the keys out of a raw artifact listing, tolerating
// fields this client does not model.
func artifactKeys(raw json.RawMessage) []string {
	var items []struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}
	return keys
}

// projectFlag resolves the project to operate on: the --project flag when
// set, the configured demo project otherwise.
func projectFlag(cmd *cobra.Command, appInstance App) string {
	if project, err := cmd.Flags().GetString("project"); err == nil && project != "" {
		return project
	}
	return appInstance.GetConfig().Demo.Project.Name
}
