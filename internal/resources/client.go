// Package resources wraps the AWS control plane services the provisioning and
// deletion workflows talk to: ECR for container registries, CodeBuild for
// build projects, CodePipeline for the CI/CD definition, S3 for artifact
// storage, CodeCommit for manifest files and CodeStar Connections for the
// source binding. Every call carries an explicit caller-side timeout and every
// "does not exist" condition is translated to a NotFoundError so callers can
// tell a benign absence from a real failure.
package resources

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/codebuild"
	"github.com/aws/aws-sdk-go-v2/service/codecommit"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codestarconnections"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Narrow views over each AWS SDK client, sized to what this package actually
// calls. Tests inject fakes through these.
type (
	ECRAPI interface {
		CreateRepository(ctx context.Context, params *ecr.CreateRepositoryInput, optFns ...func(*ecr.Options)) (*ecr.CreateRepositoryOutput, error)
		DescribeRepositories(ctx context.Context, params *ecr.DescribeRepositoriesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error)
		DeleteRepository(ctx context.Context, params *ecr.DeleteRepositoryInput, optFns ...func(*ecr.Options)) (*ecr.DeleteRepositoryOutput, error)
	}

	CodeBuildAPI interface {
		CreateProject(ctx context.Context, params *codebuild.CreateProjectInput, optFns ...func(*codebuild.Options)) (*codebuild.CreateProjectOutput, error)
		UpdateProject(ctx context.Context, params *codebuild.UpdateProjectInput, optFns ...func(*codebuild.Options)) (*codebuild.UpdateProjectOutput, error)
		BatchGetProjects(ctx context.Context, params *codebuild.BatchGetProjectsInput, optFns ...func(*codebuild.Options)) (*codebuild.BatchGetProjectsOutput, error)
		DeleteProject(ctx context.Context, params *codebuild.DeleteProjectInput, optFns ...func(*codebuild.Options)) (*codebuild.DeleteProjectOutput, error)
	}

	CodePipelineAPI interface {
		CreatePipeline(ctx context.Context, params *codepipeline.CreatePipelineInput, optFns ...func(*codepipeline.Options)) (*codepipeline.CreatePipelineOutput, error)
		GetPipeline(ctx context.Context, params *codepipeline.GetPipelineInput, optFns ...func(*codepipeline.Options)) (*codepipeline.GetPipelineOutput, error)
		DeletePipeline(ctx context.Context, params *codepipeline.DeletePipelineInput, optFns ...func(*codepipeline.Options)) (*codepipeline.DeletePipelineOutput, error)
		ListPipelines(ctx context.Context, params *codepipeline.ListPipelinesInput, optFns ...func(*codepipeline.Options)) (*codepipeline.ListPipelinesOutput, error)
	}

	S3API interface {
		CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
		ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
		ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
		DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
		DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
	}

	CodeCommitAPI interface {
		GetFile(ctx context.Context, params *codecommit.GetFileInput, optFns ...func(*codecommit.Options)) (*codecommit.GetFileOutput, error)
		GetBranch(ctx context.Context, params *codecommit.GetBranchInput, optFns ...func(*codecommit.Options)) (*codecommit.GetBranchOutput, error)
		PutFile(ctx context.Context, params *codecommit.PutFileInput, optFns ...func(*codecommit.Options)) (*codecommit.PutFileOutput, error)
		DeleteFile(ctx context.Context, params *codecommit.DeleteFileInput, optFns ...func(*codecommit.Options)) (*codecommit.DeleteFileOutput, error)
	}

	ConnectionsAPI interface {
		ListConnections(ctx context.Context, params *codestarconnections.ListConnectionsInput, optFns ...func(*codestarconnections.Options)) (*codestarconnections.ListConnectionsOutput, error)
	}
)

// Config carries what is needed to construct a Client.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	CallTimeout     time.Duration
}

// Client is the remote resource client used by the workflows.
type Client struct {
	ecr          ECRAPI
	codeBuild    CodeBuildAPI
	codePipeline CodePipelineAPI
	s3           S3API
	codeCommit   CodeCommitAPI
	connections  ConnectionsAPI

	accountID   string
	region      string
	callTimeout time.Duration
}

// LoadAWSConfig resolves the SDK configuration from explicit credentials when
// provided, otherwise the default AWS credential chain.
func LoadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	optFns := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	return awsconfig.LoadDefaultConfig(ctx, optFns...)
}

// New constructs a Client and resolves the account id once via STS.
func New(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	identity, err := sts.NewFromConfig(awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve AWS caller identity: %w", err)
	}

	return &Client{
		ecr:          ecr.NewFromConfig(awsCfg),
		codeBuild:    codebuild.NewFromConfig(awsCfg),
		codePipeline: codepipeline.NewFromConfig(awsCfg),
		s3:           s3.NewFromConfig(awsCfg),
		codeCommit:   codecommit.NewFromConfig(awsCfg),
		connections:  codestarconnections.NewFromConfig(awsCfg),
		accountID:    aws.ToString(identity.Account),
		region:       cfg.Region,
		callTimeout:  cfg.CallTimeout,
	}, nil
}

// AccountID returns the AWS account the client operates in.
func (c *Client) AccountID() string {
	return c.accountID
}

// Region returns the configured AWS region.
func (c *Client) Region() string {
	return c.region
}

// RegistryURI returns the account's ECR registry host.
func (c *Client) RegistryURI() string {
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com", c.accountID, c.region)
}

// RoleARN expands a bare IAM role name into its ARN.
func (c *Client) RoleARN(roleName string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", c.accountID, roleName)
}

// PipelineARN constructs the ARN of a pipeline by name, used as fallback when
// the create response does not carry one.
func (c *Client) PipelineARN(pipelineName string) string {
	return fmt.Sprintf("arn:aws:codepipeline:%s:%s:pipeline/%s", c.region, c.accountID, pipelineName)
}

// opCtx derives the per-call context. Remote calls must not hang a request
// past the configured timeout.
func (c *Client) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.callTimeout)
}
