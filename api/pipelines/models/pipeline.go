// Package models holds the request and response types of the pipelines API.
package models

import (
	"fmt"
	"regexp"

	"github.com/equinor/pipeline-builder-api/internal/manifest"
	"github.com/equinor/pipeline-builder-api/internal/resources"
)

const (
	minNameLength = 3
	maxNameLength = 60
)

var nameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// PipelineRequest is one pipeline to provision in a batch request.
// swagger:model pipelineRequest
type PipelineRequest struct {
	// PipelineName name of the pipeline and of every derived resource
	//
	// required: true
	// example: orders-api
	PipelineName string `json:"pipelineName"`

	// RepositoryName full identifier of the source repository
	//
	// required: true
	// example: my-org/orders-api
	RepositoryName string `json:"repositoryName"`

	// BranchName branch the pipeline builds from
	//
	// required: true
	// example: main
	BranchName string `json:"branchName"`

	// ComputeType CodeBuild compute size
	//
	// example: BUILD_GENERAL1_SMALL
	ComputeType string `json:"computeType"`

	// BuildspecPath path to a buildspec file in the repository, used when UseBuildspecFile is set
	BuildspecPath string `json:"buildspecPath,omitempty"`

	// UseBuildspecFile take the buildspec from the repository instead of the inline document
	UseBuildspecFile bool `json:"useBuildspecFile"`

	// Buildspec inline buildspec document, rendered to YAML for CodeBuild
	Buildspec map[string]any `json:"buildspec,omitempty"`

	// EnvironmentVariables plaintext variables handed to the build
	EnvironmentVariables []resources.EnvVar `json:"environmentVariables,omitempty"`

	// Deployment renders the Kubernetes deployment manifest when set
	Deployment *manifest.DeploymentConfig `json:"deployment,omitempty"`

	// Scaling renders the scaling manifest when set
	Scaling *manifest.ScalingConfig `json:"scaling,omitempty"`

	// Appsettings key-value pairs rendered into the application settings file
	Appsettings map[string]any `json:"appsettings,omitempty"`
}

// Validate checks the request field by field so the caller gets one concrete
// message per violated rule.
func (p *PipelineRequest) Validate() error {
	if len(p.PipelineName) < minNameLength {
		return fmt.Errorf("pipelineName must be at least %d characters", minNameLength)
	}
	if len(p.PipelineName) > maxNameLength {
		return fmt.Errorf("pipelineName must be at most %d characters", maxNameLength)
	}
	if !nameRegex.MatchString(p.PipelineName) {
		return fmt.Errorf("pipelineName must start with a lowercase letter or digit and contain only lowercase letters, digits and hyphens")
	}
	if p.RepositoryName == "" {
		return fmt.Errorf("repositoryName is required")
	}
	if p.BranchName == "" {
		return fmt.Errorf("branchName is required")
	}
	if p.UseBuildspecFile && p.BuildspecPath == "" {
		return fmt.Errorf("buildspecPath is required when useBuildspecFile is set")
	}
	if !p.UseBuildspecFile && len(p.Buildspec) == 0 {
		return fmt.Errorf("buildspec is required when useBuildspecFile is not set")
	}
	return nil
}

// Pipeline result statuses.
const (
	StatusCreated = "created"
	StatusError   = "error"
)

// PipelineResult is the per-pipeline outcome of a batch provisioning run.
// swagger:model pipelineResult
type PipelineResult struct {
	// PipelineName name of the requested pipeline
	PipelineName string `json:"pipelineName"`

	// PipelineArn ARN of the created pipeline, empty on failure
	PipelineArn string `json:"pipelineArn,omitempty"`

	// Status created or error
	//
	// enum: created,error
	Status string `json:"status"`

	// Error failure description, empty on success
	Error string `json:"error,omitempty"`
}

// BatchResult summarizes a provisioning batch.
// swagger:model batchResult
type BatchResult struct {
	// Success true when every pipeline in the batch was created
	Success bool `json:"success"`

	// Results per-pipeline outcomes in request order
	Results []PipelineResult `json:"results"`
}

// Succeeded counts the created pipelines.
func (b *BatchResult) Succeeded() int {
	n := 0
	for _, result := range b.Results {
		if result.Status == StatusCreated {
			n++
		}
	}
	return n
}

// DeletionResult lists what a teardown run managed to remove.
// swagger:model deletionResult
type DeletionResult struct {
	// Success true when at least one resource was deleted
	Success bool `json:"success"`

	// Deleted resources removed, as "<kind>: <name>"
	Deleted []string `json:"deleted"`

	// Errors descriptions of the resources that could not be removed
	Errors []string `json:"errors,omitempty"`
}

// PipelineSummary is one row of the pipeline list, metadata merged with the
// current lock state and the remote pipeline listing. Records and remote
// resources can drift apart; the Stale and Orphaned flags make that visible.
// swagger:model pipelineSummary
type PipelineSummary struct {
	// Name pipeline name
	Name string `json:"name"`

	// RepositoryName source repository
	RepositoryName string `json:"repositoryName,omitempty"`

	// BranchName source branch
	BranchName string `json:"branchName,omitempty"`

	// PipelineArn ARN of the remote pipeline
	PipelineArn string `json:"pipelineArn,omitempty"`

	// LastUpdated time of the last metadata write
	LastUpdated string `json:"lastUpdated,omitempty"`

	// Locked true when an editing lock is held
	Locked bool `json:"locked"`

	// LockedBy holder of the editing lock
	LockedBy string `json:"lockedBy,omitempty"`

	// Stale true when a record exists but the remote pipeline is gone
	Stale bool `json:"stale,omitempty"`

	// Orphaned true when a remote pipeline exists without a record
	Orphaned bool `json:"orphaned,omitempty"`
}
