package workflow

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pollination/guides/internal/fake"
	"github.com/pollination/guides/internal/pollination"
	"github.com/pollination/guides/internal/storage/memory"
)

// countingSleeper records poll waits instead of sleeping.
type countingSleeper struct {
	count int
}

func (s *countingSleeper) Sleep(_ context.Context, _ time.Duration) error {
	s.count++
	return nil
}

// harness wires a Runner to the in-memory API and output store.
type harness struct {
	runner  *Runner
	api     *fake.Server
	baseURL string
	outputs *memory.Store
	sleeper *countingSleeper
}

func newHarness(t *testing.T, opts fake.Options, models []string, writeModels bool) *harness {
	t.Helper()

	if opts.Token == "" {
		opts.Token = "secret"
	}
	apiSrv := fake.NewServer(opts)
	srv := httptest.NewServer(apiSrv.Handler())
	t.Cleanup(srv.Close)

	client, err := pollination.NewClient(pollination.Config{
		BaseURL: srv.URL,
		Org:     "demo",
		APIKey:  opts.Token,
	}, nil, zap.NewNop())
	require.NoError(t, err)

	dir := t.TempDir()
	if writeModels {
		for _, name := range models {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(`{"rooms":[]}`), 0o600))
		}
	}

	outputs := memory.New()
	sleeper := &countingSleeper{}
	runner := New(client, outputs, sleeper, Config{
		Project: pollination.ProjectCreate{
			Name:        "good-project",
			Description: "A very good project",
			Public:      true,
		},
		Recipe: pollination.RecipeFilter{
			Owner: "ladybug-tools",
			Name:  "daylight-factor",
			Tag:   "0.5.6",
		},
		InputName: "model",
		Models:    models,
		ModelsDir: dir,
		Poll:      pollination.PollConfig{Attempts: 5, Interval: time.Millisecond},
	}, zap.NewNop())

	return &harness{
		runner:  runner,
		api:     apiSrv,
		baseURL: srv.URL,
		outputs: outputs,
		sleeper: sleeper,
	}
}

func TestRunner_Run_FullStudySequence(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fake.Options{OutputBody: []byte("zip-payload")},
		[]string{"model1.hbjson", "model2.hbjson"}, true)

	report, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, pollination.StatusCompleted, report.Status)
	require.NotEmpty(t, report.JobID)
	require.Equal(t, 2, report.ModelsUploaded)
	require.Equal(t, 2, report.RunsSeen, "one run per argument group")
	require.Equal(t, 2, report.OutputsDownloaded)
	require.Zero(t, report.RunsSkipped)

	require.Equal(t, []string{"model1.hbjson", "model2.hbjson"}, h.api.Uploads("demo", "good-project"))
	uploaded, ok := h.api.FileContent("demo", "good-project", "model1.hbjson")
	require.True(t, ok)
	require.JSONEq(t, `{"rooms":[]}`, string(uploaded))

	names := h.outputs.Names()
	require.Len(t, names, 2)
	for _, name := range names {
		require.True(t, strings.HasSuffix(name, "-results.zip"),
			"output %s must be named {run_id}-{output_name}.zip", name)
		saved, ok := h.outputs.Get(name)
		require.True(t, ok)
		require.Equal(t, "zip-payload", string(saved))
	}

	// Default status sequence finishes on the third read, after two waits.
	require.Equal(t, 2, h.sleeper.count)
}

func TestRunner_Run_CancelledJobSkipsDownloads(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fake.Options{JobStatuses: []string{pollination.StatusCancelled}},
		[]string{"model1.hbjson"}, true)

	report, err := h.runner.Run(context.Background())
	require.NoError(t, err, "a cancelled job ends the sequence without failing it")

	require.Equal(t, pollination.StatusCancelled, report.Status)
	require.Equal(t, 1, report.ModelsUploaded)
	require.Zero(t, report.RunsSeen)
	require.Zero(t, report.OutputsDownloaded)
	require.Empty(t, h.outputs.Names())
	require.Zero(t, h.sleeper.count)
}

func TestRunner_Run_PendingJobDownloadsWhatExists(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fake.Options{JobStatuses: []string{"Created"}},
		[]string{"model1.hbjson", "model2.hbjson"}, true)

	report, err := h.runner.Run(context.Background())
	require.NoError(t, err, "an unfinished job is not an error")

	require.Equal(t, "Created", report.Status)
	require.Equal(t, 5, h.sleeper.count, "full polling budget spent")
	require.Equal(t, 2, report.RunsSeen)
	require.Equal(t, 2, report.RunsSkipped, "pending runs have no outputs yet")
	require.Zero(t, report.OutputsDownloaded)
	require.Empty(t, h.outputs.Names())
}

func TestRunner_Run_MissingModelFileFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fake.Options{}, []string{"model1.hbjson"}, false)

	report, err := h.runner.Run(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "open model")
	require.Zero(t, report.ModelsUploaded)
	require.Empty(t, h.api.Uploads("demo", "good-project"))
}

func TestRunner_Run_RejectedCredentialsSurfaceAPIError(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fake.Options{}, []string{"model1.hbjson"}, true)

	badClient, err := pollination.NewClient(pollination.Config{
		BaseURL: h.baseURL,
		Org:     "demo",
		APIKey:  "wrong",
	}, nil, zap.NewNop())
	require.NoError(t, err)

	runner := New(badClient, memory.New(), &countingSleeper{}, h.runner.cfg, zap.NewNop())
	_, err = runner.Run(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "status 403")
	require.ErrorContains(t, err, "create project")
}
