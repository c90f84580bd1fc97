package cmd

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newDownloadCmd creates and configures the 'download' subcommand, which
// fetches a single artifact a job wrote to project storage. Run outputs are
// downloaded in bulk by 'submit'; this command is for picking up individual
// files afterwards.
func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <job-id> <artifact-path>",
		Short: "Download one artifact a job left in project storage",
		Long: `Resolves a signed link for an artifact a job wrote to project storage
and streams it into the configured output store.`,

		Args: cobra.ExactArgs(2),
		RunE: runDownloadCommand,
	}
	cmd.Flags().String("project", "", "project the job belongs to (default from config)")
	return cmd
}

func runDownloadCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	client := appInstance.GetClient()
	project := projectFlag(cmd, appInstance)
	jobID, artifactPath := args[0], args[1]

	link, err := client.GetJobArtifactLink(cmd.Context(), project, jobID, artifactPath)
	if err != nil {
		return fmt.Errorf("resolve artifact %s: %w", artifactPath, err)
	}

	body, err := client.OpenDownload(cmd.Context(), link)
	if err != nil {
		return fmt.Errorf("download artifact %s: %w", artifactPath, err)
	}
	defer body.Close()

	saved, err := appInstance.GetOutputs().Save(cmd.Context(), path.Base(artifactPath), body)
	if err != nil {
		return fmt.Errorf("save artifact %s: %w", artifactPath, err)
	}

	appInstance.GetLogger().Info("artifact downloaded",
		zap.String("job_id", jobID),
		zap.String("artifact", artifactPath),
		zap.String("path", saved),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", saved)
	return nil
}
