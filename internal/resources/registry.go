package resources

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
)

// RepositoryInfo describes an existing container registry repository.
type RepositoryInfo struct {
	Name      string
	URI       string
	CreatedAt time.Time
}

// EnsureRepository creates the container registry repository with image
// scanning enabled. An already existing repository is not an error; created
// reports whether this call actually created it.
func (c *Client) EnsureRepository(ctx context.Context, name string) (created bool, err error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	_, err = c.ecr.CreateRepository(ctx, &ecr.CreateRepositoryInput{
		RepositoryName: aws.String(name),
		ImageScanningConfiguration: &ecrtypes.ImageScanningConfiguration{
			ScanOnPush: true,
		},
	})
	if err != nil {
		var exists *ecrtypes.RepositoryAlreadyExistsException
		if errors.As(err, &exists) {
			return false, nil
		}
		return false, wrapAWSErr(err, "create", "registry repository", name)
	}
	return true, nil
}

// DescribeRepository looks up one registry repository by name.
func (c *Client) DescribeRepository(ctx context.Context, name string) (*RepositoryInfo, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	out, err := c.ecr.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RepositoryNames: []string{name},
	})
	if err != nil {
		return nil, wrapAWSErr(err, "describe", "registry repository", name)
	}
	if len(out.Repositories) == 0 {
		return nil, notFound("registry repository", name)
	}

	repo := out.Repositories[0]
	info := &RepositoryInfo{
		Name: aws.ToString(repo.RepositoryName),
		URI:  aws.ToString(repo.RepositoryUri),
	}
	if repo.CreatedAt != nil {
		info.CreatedAt = *repo.CreatedAt
	}
	return info, nil
}

// DeleteRepository force-deletes the repository including any pushed images.
func (c *Client) DeleteRepository(ctx context.Context, name string) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	_, err := c.ecr.DeleteRepository(ctx, &ecr.DeleteRepositoryInput{
		RepositoryName: aws.String(name),
		Force:          true,
	})
	return wrapAWSErr(err, "delete", "registry repository", name)
}
