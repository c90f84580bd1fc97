// Package workflow orchestrates an end-to-end Pollination study: project
// setup, recipe attachment, model upload, job submission, status polling
// and run output download.
package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pollination/guides/internal/pollination"
	"github.com/pollination/guides/internal/storage"
)

// Config controls Runner behavior.
type Config struct {
	Project   pollination.ProjectCreate
	Recipe    pollination.RecipeFilter
	InputName string   // recipe input each model file is bound to
	Models    []string // artifact keys, read from ModelsDir
	ModelsDir string
	Poll      pollination.PollConfig
}

// Report summarizes how far a study sequence got.
type Report struct {
	JobID             string
	Status            string
	ModelsUploaded    int
	RunsSeen          int
	RunsSkipped       int
	OutputsDownloaded int
}

// Runner drives the study sequence against the Pollination API.
type Runner struct {
	api     *pollination.Client
	outputs storage.Provider
	sleeper pollination.Sleeper
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Runner.
func New(
	api *pollination.Client,
	outputs storage.Provider,
	sleeper pollination.Sleeper,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = "."
	}
	return &Runner{
		api:     api,
		outputs: outputs,
		sleeper: sleeper,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run executes the full sequence: create the project, attach the recipe,
// upload every model, submit one job covering all of them, wait for it to
// settle and download the first output of every run. A job that is still
// pending when the polling budget runs out is not an error; whatever runs
// already exist are downloaded. A cancelled job stops the sequence before
// the download stage.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	report := Report{}

	if err := r.setupProject(ctx); err != nil {
		return report, err
	}

	arguments, err := r.uploadModels(ctx, &report)
	if err != nil {
		return report, err
	}

	job, err := r.submitJob(ctx, arguments)
	if err != nil {
		return report, err
	}
	report.JobID = job.ID

	status, settled, err := r.api.WaitForJob(ctx, r.cfg.Project.Name, job.ID, r.cfg.Poll, r.sleeper)
	if err != nil {
		return report, fmt.Errorf("wait for job %s: %w", job.ID, err)
	}
	report.Status = status

	if status == pollination.StatusCancelled {
		r.logger.Warn("job was cancelled, skipping downloads", zap.String("job_id", job.ID))
		return report, nil
	}
	if !settled {
		r.logger.Warn("job still pending after final attempt, downloading what exists",
			zap.String("job_id", job.ID),
			zap.String("status", status),
		)
	}

	if err := r.downloadOutputs(ctx, job.ID, &report); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) setupProject(ctx context.Context) error {
	if _, err := r.api.CreateProject(ctx, r.cfg.Project); err != nil {
		return fmt.Errorf("create project %s: %w", r.cfg.Project.Name, err)
	}
	r.logger.Info("project created", zap.String("project", r.cfg.Project.Name))

	if _, err := r.api.AddRecipeToProject(ctx, r.cfg.Project.Name, r.cfg.Recipe); err != nil {
		return fmt.Errorf("add recipe to project %s: %w", r.cfg.Project.Name, err)
	}
	r.logger.Info("recipe attached",
		zap.String("project", r.cfg.Project.Name),
		zap.String("recipe", r.api.RecipeSource(r.cfg.Recipe)),
	)
	return nil
}

func (r *Runner) uploadModels(ctx context.Context, report *Report) ([][]pollination.JobPathArgument, error) {
	arguments := make([][]pollination.JobPathArgument, 0, len(r.cfg.Models))
	for _, name := range r.cfg.Models {
		if err := r.uploadModel(ctx, name); err != nil {
			return nil, err
		}
		report.ModelsUploaded++
		// One argument group per model; each group becomes its own run.
		arguments = append(arguments, []pollination.JobPathArgument{
			pollination.NewJobPathArgument(r.cfg.InputName, name),
		})
	}
	return arguments, nil
}

func (r *Runner) uploadModel(ctx context.Context, name string) error {
	path := filepath.Join(r.cfg.ModelsDir, name)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open model %s: %w", path, err)
	}
	defer f.Close()

	if err := r.api.AddFileToProject(ctx, r.cfg.Project.Name, name, f); err != nil {
		return fmt.Errorf("upload model %s: %w", name, err)
	}
	r.logger.Info("model uploaded",
		zap.String("project", r.cfg.Project.Name),
		zap.String("key", name),
	)
	return nil
}

func (r *Runner) submitJob(ctx context.Context, arguments [][]pollination.JobPathArgument) (pollination.Job, error) {
	payload := pollination.JobCreate{
		Source:    r.api.RecipeSource(r.cfg.Recipe),
		Arguments: arguments,
	}
	job, err := r.api.CreateJob(ctx, r.cfg.Project.Name, payload)
	if err != nil {
		return pollination.Job{}, fmt.Errorf("create job: %w", err)
	}
	r.logger.Info("job submitted",
		zap.String("job_id", job.ID),
		zap.String("status", job.State()),
	)
	return job, nil
}

func (r *Runner) downloadOutputs(ctx context.Context, jobID string, report *Report) error {
	runs, err := r.api.ListRuns(ctx, r.cfg.Project.Name, jobID)
	if err != nil {
		return fmt.Errorf("list runs for job %s: %w", jobID, err)
	}
	r.logger.Info("runs listed",
		zap.String("job_id", jobID),
		zap.Int("count", len(runs.Resources)),
	)

	for _, run := range runs.Resources {
		report.RunsSeen++
		if err := r.downloadRunOutput(ctx, run, report); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) downloadRunOutput(ctx context.Context, run pollination.Run, report *Report) error {
	outputs := run.Outputs()
	if len(outputs) == 0 {
		report.RunsSkipped++
		r.logger.Warn("run reports no outputs, skipping", zap.String("run_id", run.ID))
		return nil
	}

	name := outputs[0].Name
	signedURL, err := r.api.GetRunOutput(ctx, r.cfg.Project.Name, run.ID, name)
	if err != nil {
		return fmt.Errorf("resolve output %s of run %s: %w", name, run.ID, err)
	}

	body, err := r.api.OpenDownload(ctx, signedURL)
	if err != nil {
		return fmt.Errorf("download output %s of run %s: %w", name, run.ID, err)
	}
	defer body.Close()

	target := fmt.Sprintf("%s-%s.zip", run.ID, name)
	saved, err := r.outputs.Save(ctx, target, body)
	if err != nil {
		return fmt.Errorf("save output %s: %w", target, err)
	}

	report.OutputsDownloaded++
	r.logger.Info("output saved",
		zap.String("run_id", run.ID),
		zap.String("output", name),
		zap.String("path", saved),
	)
	return nil
}
