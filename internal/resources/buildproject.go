package resources

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codebuild"
	cbtypes "github.com/aws/aws-sdk-go-v2/service/codebuild/types"
)

// EnvVar is one name/value environment variable pair passed to a build.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BuildProjectSpec is the provisioning request for one CodeBuild project. The
// buildspec is either a repository file path or inline YAML, already resolved
// by the caller.
type BuildProjectSpec struct {
	Name                     string
	Buildspec                string
	ComputeType              string
	EnvironmentType          string
	Image                    string
	PrivilegedMode           bool
	ImagePullCredentialsType string
	ServiceRoleARN           string
	SecurityGroupIDs         []string
	EnvironmentVariables     []EnvVar
}

// BuildProjectInfo describes an existing build project.
type BuildProjectInfo struct {
	Name        string
	ARN         string
	ServiceRole string
}

func buildProjectInput(spec BuildProjectSpec) (*cbtypes.ProjectSource, *cbtypes.ProjectArtifacts, *cbtypes.ProjectEnvironment, *cbtypes.VpcConfig) {
	envVars := make([]cbtypes.EnvironmentVariable, 0, len(spec.EnvironmentVariables))
	for _, v := range spec.EnvironmentVariables {
		envVars = append(envVars, cbtypes.EnvironmentVariable{
			Name:  aws.String(v.Name),
			Value: aws.String(v.Value),
			Type:  cbtypes.EnvironmentVariableTypePlaintext,
		})
	}

	source := &cbtypes.ProjectSource{
		Type:      cbtypes.SourceTypeCodepipeline,
		Buildspec: aws.String(spec.Buildspec),
	}
	artifacts := &cbtypes.ProjectArtifacts{
		Type: cbtypes.ArtifactsTypeCodepipeline,
	}
	environment := &cbtypes.ProjectEnvironment{
		Type:                     cbtypes.EnvironmentType(spec.EnvironmentType),
		Image:                    aws.String(spec.Image),
		ComputeType:              cbtypes.ComputeType(spec.ComputeType),
		PrivilegedMode:           aws.Bool(spec.PrivilegedMode),
		ImagePullCredentialsType: cbtypes.ImagePullCredentialsType(spec.ImagePullCredentialsType),
		EnvironmentVariables:     envVars,
	}

	var vpc *cbtypes.VpcConfig
	if len(spec.SecurityGroupIDs) > 0 {
		vpc = &cbtypes.VpcConfig{SecurityGroupIds: spec.SecurityGroupIDs}
	}
	return source, artifacts, environment, vpc
}

// CreateBuildProject creates the CodeBuild project for a pipeline.
func (c *Client) CreateBuildProject(ctx context.Context, spec BuildProjectSpec) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	source, artifacts, environment, vpc := buildProjectInput(spec)
	_, err := c.codeBuild.CreateProject(ctx, &codebuild.CreateProjectInput{
		Name:        aws.String(spec.Name),
		Source:      source,
		Artifacts:   artifacts,
		Environment: environment,
		ServiceRole: aws.String(spec.ServiceRoleARN),
		VpcConfig:   vpc,
	})
	return wrapAWSErr(err, "create", "build project", spec.Name)
}

// UpdateBuildProject applies spec to an existing CodeBuild project.
func (c *Client) UpdateBuildProject(ctx context.Context, spec BuildProjectSpec) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	source, artifacts, environment, vpc := buildProjectInput(spec)
	_, err := c.codeBuild.UpdateProject(ctx, &codebuild.UpdateProjectInput{
		Name:        aws.String(spec.Name),
		Source:      source,
		Artifacts:   artifacts,
		Environment: environment,
		ServiceRole: aws.String(spec.ServiceRoleARN),
		VpcConfig:   vpc,
	})
	return wrapAWSErr(err, "update", "build project", spec.Name)
}

// DescribeBuildProject looks up one build project by name. CodeBuild has no
// typed not-found error for reads; an empty batch result means the project
// does not exist.
func (c *Client) DescribeBuildProject(ctx context.Context, name string) (*BuildProjectInfo, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	out, err := c.codeBuild.BatchGetProjects(ctx, &codebuild.BatchGetProjectsInput{
		Names: []string{name},
	})
	if err != nil {
		return nil, wrapAWSErr(err, "describe", "build project", name)
	}
	if len(out.Projects) == 0 {
		return nil, notFound("build project", name)
	}

	project := out.Projects[0]
	return &BuildProjectInfo{
		Name:        aws.ToString(project.Name),
		ARN:         aws.ToString(project.Arn),
		ServiceRole: aws.ToString(project.ServiceRole),
	}, nil
}

// DeleteBuildProject removes the build project.
func (c *Client) DeleteBuildProject(ctx context.Context, name string) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	_, err := c.codeBuild.DeleteProject(ctx, &codebuild.DeleteProjectInput{
		Name: aws.String(name),
	})
	return wrapAWSErr(err, "delete", "build project", name)
}
