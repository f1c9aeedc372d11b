// Package publish compiles projects into workspace documents and pushes
// them to the assistant service, one external call per job.
package publish

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/oklog/ulid/v2"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/model"
)

// WorkspaceTarget names the workspace a job publishes into. An empty ID
// creates a new workspace.
type WorkspaceTarget struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

// Job describes one publishing attempt.
type Job struct {
	ID                string          `json:"id"`
	ProjectID         string          `json:"projectId"`
	ServiceProviderID string          `json:"serviceProviderId"`
	Workspace         WorkspaceTarget `json:"workspace"`
	StartedOn         time.Time       `json:"startedOn"`
	CompletedOn       *time.Time      `json:"completedOn,omitempty"`
	Errors            []string        `json:"errors,omitempty"`
}

// NewJob returns a job for project with a fresh ULID.
func NewJob(project *model.Project, target WorkspaceTarget) Job {
	job := Job{
		ID:        ulid.Make().String(),
		Workspace: target,
		StartedOn: time.Now().UTC(),
	}
	if project != nil {
		job.ProjectID = project.ID
		job.ServiceProviderID = project.ServiceProvider.ID
	}
	return job
}

func (Job) Type() string { return "publish::job" }

func (j Job) Validate() error {
	var fields []errors.FieldError
	if strings.TrimSpace(j.ID) == "" {
		fields = append(fields, errors.FieldError{Field: "id", Message: "job id is required"})
	}
	if strings.TrimSpace(j.ProjectID) == "" {
		fields = append(fields, errors.FieldError{Field: "projectId", Message: "project id is required"})
	}
	if strings.TrimSpace(j.Workspace.Name) == "" && strings.TrimSpace(j.Workspace.ID) == "" {
		fields = append(fields, errors.FieldError{Field: "workspace.name", Message: "workspace name is required when creating"})
	}
	if len(fields) == 0 {
		return nil
	}
	return errors.NewValidation("invalid publishing job", fields...).
		WithTextCode(assistant.CodeValidationFailed)
}

// Request pairs a loaded project with the job publishing it.
type Request struct {
	Project *model.Project
	Job     Job
}

func (Request) Type() string { return "publish::request" }

func (r Request) Validate() error {
	if r.Project == nil {
		return errors.New("project required", errors.CategoryBadInput).
			WithTextCode("PROJECT_REQUIRED")
	}
	return r.Job.Validate()
}

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
)

// Result reports the outcome of one job. Err is set when Status is failed.
type Result struct {
	JobID       string    `json:"jobId"`
	ProjectID   string    `json:"projectId"`
	WorkspaceID string    `json:"workspaceId,omitempty"`
	Operation   Operation `json:"operation"`
	Status      Status    `json:"status"`
	Err         error     `json:"-"`
	StartedOn   time.Time `json:"startedOn"`
	CompletedOn time.Time `json:"completedOn"`
}

func (r Result) Failed() bool {
	return r.Status == StatusFailed
}

// FailureMode selects how a failed external call surfaces to the caller.
type FailureMode int

const (
	// FailureModeReport logs the failure and returns a failed Result with a nil error.
	FailureModeReport FailureMode = iota
	// FailureModeReturn also returns the failure as an error.
	FailureModeReturn
)

// ParseFailureMode maps "report" and "return" to a FailureMode.
func ParseFailureMode(s string) (FailureMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "report":
		return FailureModeReport, nil
	case "return":
		return FailureModeReturn, nil
	}
	return FailureModeReport, errors.New("unknown failure mode "+s, errors.CategoryBadInput).
		WithTextCode("INVALID_FAILURE_MODE")
}

func (m FailureMode) String() string {
	if m == FailureModeReturn {
		return "return"
	}
	return "report"
}
