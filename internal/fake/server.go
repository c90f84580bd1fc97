// Package fake provides an in-memory stand-in for the Pollination REST API.
// It backs the package tests and the dev-server command, so the full study
// sequence can be exercised without credentials or network access. Signed
// upload and download URLs point back at the fake itself.
package fake

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pollination/guides/internal/id"
	"github.com/pollination/guides/internal/pollination"
)

// maxUploadMemory bounds in-memory multipart parsing for artifact uploads.
const maxUploadMemory = 32 << 20

// Options controls fake server behavior.
type Options struct {
	// Token is the value required in the x-pollination-token header. Empty
	// disables the auth check.
	Token string
	// Username is reported by the /user endpoint.
	Username string
	// JobStatuses is the sequence of statuses successive job reads walk
	// through; the last entry repeats forever. Defaults to
	// Created, Running, Completed.
	JobStatuses []string
	// OutputName is the single output every finished run reports.
	OutputName string
	// OutputBody is the payload served for run output downloads.
	OutputBody []byte
	// IDs generates job and run ids. Nil falls back to the uuid generator.
	IDs pollination.IDGenerator
	// Logger receives debug logs. Nil disables logging.
	Logger *zap.Logger
}

type jobRecord struct {
	id       string
	project  string
	source   string
	runIDs   []string
	statuses []string
	reads    int
}

// current reports the status a non-advancing read (listings) would see.
func (j *jobRecord) current() string {
	idx := j.reads
	if idx >= len(j.statuses) {
		idx = len(j.statuses) - 1
	}
	return j.statuses[idx]
}

// Server is the in-memory API implementation.
type Server struct {
	router chi.Router
	opts   Options
	logger *zap.Logger

	mu        sync.Mutex
	projects  map[string]pollination.ProjectCreate
	recipes   map[string]pollination.RecipeFilter
	files     map[string][]byte
	jobs      map[string]*jobRecord
	downloads map[string][]byte
}

// NewServer constructs a Server with routes matching the Pollination API.
func NewServer(opts Options) *Server {
	if opts.Username == "" {
		opts.Username = "pollination-user"
	}
	if len(opts.JobStatuses) == 0 {
		opts.JobStatuses = []string{"Created", "Running", pollination.StatusCompleted}
	}
	if opts.OutputName == "" {
		opts.OutputName = "results"
	}
	if len(opts.OutputBody) == 0 {
		opts.OutputBody = []byte("PK\x03\x04 fake zip payload")
	}
	if opts.IDs == nil {
		opts.IDs = id.NewGenerator()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		opts:      opts,
		logger:    logger,
		projects:  map[string]pollination.ProjectCreate{},
		recipes:   map[string]pollination.RecipeFilter{},
		files:     map[string][]byte{},
		jobs:      map[string]*jobRecord{},
		downloads: map[string][]byte{},
	}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		if opts.Token != "" {
			r.Use(tokenMiddleware(opts.Token))
		}
		r.Get("/user", s.getUser)
		r.Get("/accounts/{name}", s.getAccount)
		r.Route("/projects/{owner}", func(r chi.Router) {
			r.Post("/", s.createProject)
			r.Route("/{name}", func(r chi.Router) {
				r.Post("/recipes/filters", s.addRecipe)
				r.Post("/artifacts", s.createArtifact)
				r.Route("/jobs", func(r chi.Router) {
					r.Post("/", s.createJob)
					r.Get("/", s.listJobs)
					r.Route("/{job_id}", func(r chi.Router) {
						r.Get("/", s.getJob)
						r.Get("/artifacts", s.listJobArtifacts)
						r.Get("/artifacts/downloads", s.jobArtifactLink)
					})
				})
				r.Get("/runs", s.listRuns)
				r.Get("/runs/{run_id}/outputs/{output_name}", s.runOutputLink)
			})
		})
	})
	// Signed-URL endpoints carry their authorization in the URL itself.
	r.Post("/uploads/{owner}/{name}", s.acceptUpload)
	r.Get("/downloads/*", s.serveDownload)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Uploads returns the sorted artifact keys uploaded to a project.
func (s *Server) Uploads(owner, name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := projectKey(owner, name) + "/"
	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k[len(prefix):])
		}
	}
	sort.Strings(keys)
	return keys
}

// FileContent returns the bytes uploaded for one artifact key.
func (s *Server) FileContent(owner, name, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[projectKey(owner, name)+"/"+key]
	return content, ok
}

func (s *Server) getUser(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       "usr-1",
		"username": s.opts.Username,
		"name":     "Pollination User",
		"email":    s.opts.Username + "@example.com",
	})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           "acc-1",
		"account_type": "org",
		"name":         name,
		"display_name": name,
	})
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	var project pollination.ProjectCreate
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if project.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "project name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := projectKey(owner, project.Name)
	if _, exists := s.projects[key]; exists {
		writeError(w, http.StatusConflict, "project already exists")
		return
	}
	s.projects[key] = project
	s.logger.Debug("project created", zap.String("project", key))
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          "prj-" + project.Name,
		"name":        project.Name,
		"description": project.Description,
		"public":      project.Public,
	})
}

func (s *Server) addRecipe(w http.ResponseWriter, r *http.Request) {
	key := requestProjectKey(r)
	var filter pollination.RecipeFilter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[key]; !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	s.recipes[key] = filter
	writeJSON(w, http.StatusOK, filter)
}

func (s *Server) createArtifact(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "name")
	var artifact pollination.Artifact
	if err := json.NewDecoder(r.Body).Decode(&artifact); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if artifact.Key == "" {
		writeError(w, http.StatusUnprocessableEntity, "artifact key is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectKey(owner, name)]; !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, pollination.UploadTarget{
		URL: fmt.Sprintf("%s/uploads/%s/%s", requestBaseURL(r), owner, name),
		Fields: map[string]string{
			"key":    artifact.Key,
			"policy": "fake-signed-policy",
		},
	})
}

func (s *Server) acceptUpload(w http.ResponseWriter, r *http.Request) {
	key := requestProjectKey(r)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	artifactKey := r.FormValue("key")
	if artifactKey == "" {
		writeError(w, http.StatusBadRequest, "missing key field")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable file part")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[key]; !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	s.files[key+"/"+artifactKey] = content
	s.logger.Debug("artifact stored",
		zap.String("project", key),
		zap.String("key", artifactKey),
		zap.Int("bytes", len(content)),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	key := requestProjectKey(r)
	var job pollination.JobCreate
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if job.Source == "" {
		writeError(w, http.StatusUnprocessableEntity, "job source is required")
		return
	}
	if len(job.Arguments) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "at least one argument group is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[key]; !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	jobID, err := s.opts.IDs.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generate job id failed")
		return
	}
	runIDs := make([]string, 0, len(job.Arguments))
	for range job.Arguments {
		runID, err := s.opts.IDs.NewID()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "generate run id failed")
			return
		}
		runIDs = append(runIDs, runID)
	}

	rec := &jobRecord{
		id:       jobID,
		project:  key,
		source:   job.Source,
		runIDs:   runIDs,
		statuses: s.opts.JobStatuses,
	}
	s.jobs[jobID] = rec
	s.logger.Debug("job created",
		zap.String("project", key),
		zap.String("job_id", jobID),
		zap.Int("runs", len(runIDs)),
	)
	writeJSON(w, http.StatusCreated, s.jobJSON(rec, rec.current()))
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok || rec.project != requestProjectKey(r) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	status := rec.current()
	rec.reads++
	writeJSON(w, http.StatusOK, s.jobJSON(rec, status))
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	key := requestProjectKey(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	resources := make([]map[string]any, 0)
	for _, rec := range s.jobs {
		if rec.project == key {
			resources = append(resources, s.jobJSON(rec, rec.current()))
		}
	}
	sort.Slice(resources, func(i, j int) bool {
		return resources[i]["id"].(string) < resources[j]["id"].(string)
	})
	writeJSON(w, http.StatusOK, listJSON(resources))
}

func (s *Server) listJobArtifacts(w http.ResponseWriter, r *http.Request) {
	key := requestProjectKey(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := key + "/"
	resources := make([]map[string]any, 0)
	for k := range s.files {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			resources = append(resources, map[string]any{
				"key":       k[len(prefix):],
				"file_type": "file",
			})
		}
	}
	sort.Slice(resources, func(i, j int) bool {
		return resources[i]["key"].(string) < resources[j]["key"].(string)
	})
	writeJSON(w, http.StatusOK, resources)
}

func (s *Server) jobArtifactLink(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	path := r.URL.Query().Get("path")
	key := requestProjectKey(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok || rec.project != key {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	content, ok := s.files[key+"/"+path]
	if !ok {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	downloadKey := "jobs/" + jobID + "/" + path
	s.downloads[downloadKey] = content
	writeJSON(w, http.StatusOK, requestBaseURL(r)+"/downloads/"+downloadKey)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	key := requestProjectKey(r)
	jobID := r.URL.Query().Get("job_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	resources := make([]map[string]any, 0)
	for _, rec := range s.jobs {
		if rec.project != key || (jobID != "" && rec.id != jobID) {
			continue
		}
		for _, runID := range rec.runIDs {
			resources = append(resources, s.runJSON(rec, runID))
		}
	}
	sort.Slice(resources, func(i, j int) bool {
		return resources[i]["id"].(string) < resources[j]["id"].(string)
	})
	writeJSON(w, http.StatusOK, listJSON(resources))
}

func (s *Server) runOutputLink(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	outputName := chi.URLParam(r, "output_name")
	key := requestProjectKey(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.findRun(key, runID)
	if rec == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if rec.current() != pollination.StatusCompleted || outputName != s.opts.OutputName {
		writeError(w, http.StatusNotFound, "output not found")
		return
	}
	downloadKey := "runs/" + runID + "/" + outputName
	s.downloads[downloadKey] = s.opts.OutputBody
	writeJSON(w, http.StatusOK, requestBaseURL(r)+"/downloads/"+downloadKey)
}

func (s *Server) serveDownload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	s.mu.Lock()
	content, ok := s.downloads[key]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "download link expired or unknown")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		s.logger.Debug("download write failed", zap.Error(err))
	}
}

// findRun locates the job owning runID within a project. Callers hold mu.
func (s *Server) findRun(projectKey, runID string) *jobRecord {
	for _, rec := range s.jobs {
		if rec.project != projectKey {
			continue
		}
		for _, id := range rec.runIDs {
			if id == runID {
				return rec
			}
		}
	}
	return nil
}

func (s *Server) jobJSON(rec *jobRecord, status string) map[string]any {
	return map[string]any{
		"id":     rec.id,
		"source": rec.source,
		"status": map[string]any{"status": status},
	}
}

// runJSON renders one run. Outputs appear only once the job has completed;
// a cancelled or still-running job yields runs without outputs. Callers
// hold mu.
func (s *Server) runJSON(rec *jobRecord, runID string) map[string]any {
	status := rec.current()
	runStatus := map[string]any{"status": status, "outputs": []map[string]any{}}
	switch status {
	case pollination.StatusCompleted:
		runStatus["outputs"] = []map[string]any{{"name": s.opts.OutputName}}
	case pollination.StatusCancelled:
	default:
		runStatus["status"] = "Scheduled"
	}
	return map[string]any{
		"id":     runID,
		"status": runStatus,
	}
}

func listJSON(resources []map[string]any) map[string]any {
	return map[string]any{
		"page":        1,
		"per_page":    25,
		"page_count":  1,
		"total_count": len(resources),
		"resources":   resources,
	}
}

func projectKey(owner, name string) string {
	return owner + "/" + name
}

func requestProjectKey(r *http.Request) string {
	return projectKey(chi.URLParam(r, "owner"), chi.URLParam(r, "name"))
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func tokenMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("x-pollination-token") != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
