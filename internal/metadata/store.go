// Package metadata persists pipeline configuration records and the two
// singleton settings blobs. A record's existence is the single source of truth
// for "this pipeline is managed by us"; remote resources and records can drift
// apart since rollback and deletion are best effort.
package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/equinor/pipeline-builder-api/internal/manifest"
	"github.com/equinor/pipeline-builder-api/internal/resources"
)

// Reserved settings keys. They share the pipeline table but can never collide
// with pipeline records since the leading underscore fails name validation.
const (
	SettingsKindPipeline       = "pipeline_settings"
	SettingsKindEnvSuggestions = "env_suggestions"

	settingsKeyPrefix = "_SETTINGS_"
)

// ErrRecordNotFound is returned when no record exists under the requested key.
var ErrRecordNotFound = errors.New("metadata record not found")

// Record is the persisted configuration of one provisioned pipeline.
type Record struct {
	Name                 string                     `json:"name" dynamodbav:"pipeline_name"`
	RepositoryName       string                     `json:"repositoryName" dynamodbav:"repositoryName"`
	BranchName           string                     `json:"branchName" dynamodbav:"branchName"`
	ComputeType          string                     `json:"computeType" dynamodbav:"computeType"`
	BuildspecPath        string                     `json:"buildspecPath,omitempty" dynamodbav:"buildspecPath,omitempty"`
	UseBuildspecFile     bool                       `json:"useBuildspecFile" dynamodbav:"useBuildspecFile"`
	Buildspec            string                     `json:"buildspec,omitempty" dynamodbav:"buildspec,omitempty"`
	EnvironmentVariables []resources.EnvVar         `json:"environmentVariables,omitempty" dynamodbav:"environmentVariables,omitempty"`
	Deployment           *manifest.DeploymentConfig `json:"deployment,omitempty" dynamodbav:"deployment,omitempty"`
	Scaling              *manifest.ScalingConfig    `json:"scaling,omitempty" dynamodbav:"scaling,omitempty"`
	Appsettings          map[string]any             `json:"appsettings,omitempty" dynamodbav:"appsettings,omitempty"`

	// Derived resource names recorded at provisioning time.
	BuildProjectName   string `json:"buildProjectName,omitempty" dynamodbav:"buildProjectName,omitempty"`
	RegistryRepository string `json:"registryRepository,omitempty" dynamodbav:"registryRepository,omitempty"`
	ArtifactBucket     string `json:"artifactBucket,omitempty" dynamodbav:"artifactBucket,omitempty"`
	PipelineARN        string `json:"pipelineArn,omitempty" dynamodbav:"pipelineArn,omitempty"`

	CreatedAt   time.Time `json:"createdAt" dynamodbav:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated" dynamodbav:"lastUpdated"`
}

// Store is the persistence contract used by the handlers and workflows.
type Store interface {
	GetPipeline(ctx context.Context, name string) (*Record, error)
	SavePipeline(ctx context.Context, record *Record) error
	DeletePipeline(ctx context.Context, name string) (bool, error)
	ListPipelines(ctx context.Context) ([]Record, error)
	GetSettings(ctx context.Context, kind string) (map[string]any, error)
	SaveSettings(ctx context.Context, kind string, settings map[string]any) error
}
