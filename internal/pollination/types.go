package pollination

// ProjectCreate is the payload for creating a project under an account.
type ProjectCreate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// RecipeFilter selects a versioned recipe from the set visible to the
// current account. Attaching one to a project makes the recipe usable by
// that project's jobs.
type RecipeFilter struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
	Tag   string `json:"tag"`
}

// Artifact registers a file key with a project ahead of the actual upload.
type Artifact struct {
	Key string `json:"key"`
}

// UploadTarget is the signed storage location the API hands back when an
// artifact is registered. The file bytes go to URL in a second, form-encoded
// POST carrying Fields verbatim.
type UploadTarget struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// Schema type discriminators carried on job arguments, matching the recipe
// schema the API validates against.
const (
	typeJobPathArgument = "JobPathArgument"
	typeProjectFolder   = "ProjectFolder"
)

// ProjectFolder points a job argument at a file previously uploaded to the
// project's storage folder.
type ProjectFolder struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// NewProjectFolder builds a ProjectFolder source for an uploaded artifact key.
func NewProjectFolder(path string) ProjectFolder {
	return ProjectFolder{Type: typeProjectFolder, Path: path}
}

// JobPathArgument binds a named recipe input to an uploaded artifact.
type JobPathArgument struct {
	Type   string        `json:"type"`
	Name   string        `json:"name"`
	Source ProjectFolder `json:"source"`
}

// NewJobPathArgument builds an argument for the recipe input called name,
// sourced from the project file at path.
func NewJobPathArgument(name, path string) JobPathArgument {
	return JobPathArgument{
		Type:   typeJobPathArgument,
		Name:   name,
		Source: NewProjectFolder(path),
	}
}

// JobCreate is the minimal payload for submitting a job. A job can be started
// with many argument groups to run the same recipe with different parameters,
// so Arguments is a list of lists: one group per run.
type JobCreate struct {
	Source    string              `json:"source"`
	Arguments [][]JobPathArgument `json:"arguments"`
}

// Job and run statuses reported by the API. Completed and Cancelled are the
// terminal states the status poll watches for; everything else means the
// scheduler is still working.
const (
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

// JobStatus is the nested status object on a job resource.
type JobStatus struct {
	Status string `json:"status"`
}

// Job is the subset of the job resource the guides read back.
type Job struct {
	ID     string     `json:"id"`
	Status *JobStatus `json:"status,omitempty"`
}

// State returns the job's current status string, or "" when the scheduler has
// not reported one yet.
func (j Job) State() string {
	if j.Status == nil {
		return ""
	}
	return j.Status.Status
}

// JobList is a paginated job listing.
type JobList struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	PageCount  int   `json:"page_count"`
	TotalCount int   `json:"total_count"`
	Resources  []Job `json:"resources"`
}

// RunOutput names one downloadable output produced by a run. The selected
// recipe determines which outputs exist.
type RunOutput struct {
	Name string `json:"name"`
}

// RunStatus carries a run's state together with its named outputs.
type RunStatus struct {
	Status  string      `json:"status"`
	Outputs []RunOutput `json:"outputs"`
}

// Run is one concrete execution of a recipe for one argument group.
type Run struct {
	ID     string     `json:"id"`
	Status *RunStatus `json:"status,omitempty"`
}

// Outputs returns the run's named outputs, empty when the status block is
// missing.
func (r Run) Outputs() []RunOutput {
	if r.Status == nil {
		return nil
	}
	return r.Status.Outputs
}

// RunList is the paginated run listing for a job.
type RunList struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	PageCount  int   `json:"page_count"`
	TotalCount int   `json:"total_count"`
	Resources  []Run `json:"resources"`
}
