package resources

import "context"

// API is the full surface of the remote resource client. Handlers depend on
// this interface so tests can substitute fakes without touching AWS.
type API interface {
	AccountID() string
	Region() string
	RegistryURI() string
	RoleARN(roleName string) string
	PipelineARN(pipelineName string) string

	EnsureRepository(ctx context.Context, name string) (bool, error)
	DescribeRepository(ctx context.Context, name string) (*RepositoryInfo, error)
	DeleteRepository(ctx context.Context, name string) error

	CreateBuildProject(ctx context.Context, spec BuildProjectSpec) error
	UpdateBuildProject(ctx context.Context, spec BuildProjectSpec) error
	DescribeBuildProject(ctx context.Context, name string) (*BuildProjectInfo, error)
	DeleteBuildProject(ctx context.Context, name string) error

	CreatePipeline(ctx context.Context, spec PipelineSpec) (string, error)
	DescribePipeline(ctx context.Context, name string) (*PipelineInfo, error)
	DeletePipeline(ctx context.Context, name string) error
	ListPipelines(ctx context.Context) ([]PipelineInfo, error)

	CreateArtifactBucket(ctx context.Context, name string) error
	DeleteArtifactBucketRecursive(ctx context.Context, name string) error
	FindArtifactBuckets(ctx context.Context, prefix string) ([]string, error)

	GetFile(ctx context.Context, repo, branch, path string) ([]byte, error)
	PutFile(ctx context.Context, repo, branch, path string, content []byte, message string) (string, error)
	DeleteFiles(ctx context.Context, repo, branch string, paths []string, message string) ([]string, error)

	ResolveConnectionARN(ctx context.Context, connectionName string) (string, error)
}

var _ API = (*Client)(nil)
