package pollination

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pollination/guides/internal/id"
)

// Header names the API expects on outgoing calls.
const (
	headerToken     = "x-pollination-token"
	headerRequestID = "x-request-id"
)

// DefaultTimeout bounds API calls when Config.Timeout is not set.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response body is copied into the
// returned error text.
const maxErrorBody = 512

// IDGenerator produces the request ids attached to outgoing calls.
type IDGenerator interface {
	NewID() (string, error)
}

// Config carries everything a Client needs to reach the API.
type Config struct {
	// BaseURL is the API host, e.g. https://api.staging.pollination.cloud.
	BaseURL string
	// Org is the account name all project-scoped routes are issued under.
	Org string
	// APIKey is sent as the x-pollination-token header on every request.
	APIKey string
	// Timeout bounds each HTTP call. Zero means DefaultTimeout.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing calls. Zero or negative means
	// unlimited.
	RequestsPerSecond float64
	// Burst is the limiter burst size. Zero means 1.
	Burst int
}

// Client issues authenticated calls against the Pollination REST API: one
// method per endpoint, route templates filled from path parameters, payloads
// JSON-encoded as-is. The client performs no retries and no validation beyond
// status checks; errors carry the upstream status and a body snippet.
type Client struct {
	baseURL    string
	org        string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	ids        IDGenerator
	logger     *zap.Logger
}

// NewClient builds a Client from cfg. A nil ids falls back to the uuid-backed
// generator and a nil logger to a no-op logger.
func NewClient(cfg Config, ids IDGenerator, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("pollination: base URL must be set")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pollination: API key must be set")
	}
	if cfg.Org == "" {
		return nil, fmt.Errorf("pollination: organization must be set")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if ids == nil {
		ids = id.NewGenerator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    trimBaseURL(cfg.BaseURL),
		org:        cfg.Org,
		token:      cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		ids:        ids,
		logger:     logger,
	}, nil
}

// Org returns the account name the client was configured with.
func (c *Client) Org() string {
	return c.org
}

// BaseURL returns the API host the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetUser fetches the profile of the user the API key belongs to.
func (c *Client) GetUser(ctx context.Context) (json.RawMessage, error) {
	var user json.RawMessage
	if err := c.getJSON(ctx, routeUser, &user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetAccount fetches the account the client is configured for.
func (c *Client) GetAccount(ctx context.Context) (json.RawMessage, error) {
	path := expandRoute(routeAccount, map[string]string{"name": c.org})
	var account json.RawMessage
	if err := c.getJSON(ctx, path, &account); err != nil {
		return nil, err
	}
	return account, nil
}

// CreateProject creates a project under the configured account.
func (c *Client) CreateProject(ctx context.Context, project ProjectCreate) (json.RawMessage, error) {
	path := expandRoute(routeProjects, map[string]string{"owner": c.org})
	var created json.RawMessage
	if err := c.postJSON(ctx, path, project, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// AddRecipeToProject attaches a recipe to the project via a filter that
// selects it from the set of recipes visible to the current account.
func (c *Client) AddRecipeToProject(ctx context.Context, projectName string, filter RecipeFilter) (json.RawMessage, error) {
	path := expandRoute(routeProjectRecipeFilter, map[string]string{
		"owner": c.org,
		"name":  projectName,
	})
	var attached json.RawMessage
	if err := c.postJSON(ctx, path, filter, &attached); err != nil {
		return nil, err
	}
	return attached, nil
}

// CreateArtifact registers a file key with the project and returns the signed
// storage location the content must be uploaded to.
func (c *Client) CreateArtifact(ctx context.Context, projectName string, artifact Artifact) (UploadTarget, error) {
	path := expandRoute(routeProjectArtifacts, map[string]string{
		"owner": c.org,
		"name":  projectName,
	})
	var target UploadTarget
	if err := c.postJSON(ctx, path, artifact, &target); err != nil {
		return UploadTarget{}, err
	}
	return target, nil
}

// CreateJob submits a job against the project's recipe and returns the
// created resource; the id is what later status and run lookups key on.
func (c *Client) CreateJob(ctx context.Context, projectName string, job JobCreate) (Job, error) {
	path := expandRoute(routeProjectJobs, map[string]string{
		"owner": c.org,
		"name":  projectName,
	})
	var created Job
	if err := c.postJSON(ctx, path, job, &created); err != nil {
		return Job{}, err
	}
	return created, nil
}

// GetJob fetches one job, including its current scheduler status.
func (c *Client) GetJob(ctx context.Context, projectName, jobID string) (Job, error) {
	path := expandRoute(routeProjectJob, map[string]string{
		"owner":  c.org,
		"name":   projectName,
		"job_id": jobID,
	})
	var job Job
	if err := c.getJSON(ctx, path, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// ListJobs lists the project's jobs.
func (c *Client) ListJobs(ctx context.Context, projectName string) (JobList, error) {
	path := expandRoute(routeProjectJobs, map[string]string{
		"owner": c.org,
		"name":  projectName,
	})
	var jobs JobList
	if err := c.getJSON(ctx, path, &jobs); err != nil {
		return JobList{}, err
	}
	return jobs, nil
}

// ListJobArtifacts lists the artifacts a job wrote to project storage.
func (c *Client) ListJobArtifacts(ctx context.Context, projectName, jobID string) (json.RawMessage, error) {
	path := expandRoute(routeJobArtifacts, map[string]string{
		"owner":  c.org,
		"name":   projectName,
		"job_id": jobID,
	})
	var artifacts json.RawMessage
	if err := c.getJSON(ctx, path, &artifacts); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// GetJobArtifactLink returns a signed download URL for one job artifact path.
func (c *Client) GetJobArtifactLink(ctx context.Context, projectName, jobID, artifactPath string) (string, error) {
	path := expandRoute(routeJobArtifactDownload, map[string]string{
		"owner":  c.org,
		"name":   projectName,
		"job_id": jobID,
	})
	query := url.Values{}
	query.Set("path", artifactPath)
	var link string
	if err := c.getJSON(ctx, path+"?"+query.Encode(), &link); err != nil {
		return "", err
	}
	return link, nil
}

// ListRuns lists the runs the scheduler created for a job, one per argument
// group.
func (c *Client) ListRuns(ctx context.Context, projectName, jobID string) (RunList, error) {
	path := expandRoute(routeProjectRuns, map[string]string{
		"owner": c.org,
		"name":  projectName,
	})
	query := url.Values{}
	query.Set("job_id", jobID)
	var runs RunList
	if err := c.getJSON(ctx, path+"?"+query.Encode(), &runs); err != nil {
		return RunList{}, err
	}
	return runs, nil
}

// GetRunOutput returns a signed download URL for one named run output. The
// API responds with a bare JSON-encoded string.
func (c *Client) GetRunOutput(ctx context.Context, projectName, runID, outputName string) (string, error) {
	path := expandRoute(routeRunOutput, map[string]string{
		"owner":       c.org,
		"name":        projectName,
		"run_id":      runID,
		"output_name": outputName,
	})
	var link string
	if err := c.getJSON(ctx, path, &link); err != nil {
		return "", err
	}
	return link, nil
}

// do issues one authenticated request. The caller owns the response body.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(headerToken, c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID, err := c.ids.NewID()
	if err == nil {
		req.Header.Set(headerRequestID, requestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	observeRequest(method, duration, err)
	if err != nil {
		c.logger.Debug("API request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.Debug("API request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("dur", duration),
	)
	return resp, nil
}

// getJSON issues a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// postJSON issues a POST with a JSON body and decodes the response into out.
// A nil out discards the response body.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// checkStatus turns a non-2xx response into an error carrying the status and
// a snippet of the body.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("API returned status %d for %s %s: %s",
		resp.StatusCode, resp.Request.Method, resp.Request.URL.Path, bytes.TrimSpace(snippet))
}

func trimBaseURL(raw string) string {
	for len(raw) > 0 && raw[len(raw)-1] == '/' {
		raw = raw[:len(raw)-1]
	}
	return raw
}
