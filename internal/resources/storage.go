package resources

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// CreateArtifactBucket creates the pipeline's artifact storage bucket. A
// bucket that already exists under this account is accepted as-is.
func (c *Client) CreateArtifactBucket(ctx context.Context, name string) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// us-east-1 rejects an explicit location constraint
	if c.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(c.region),
		}
	}

	_, err := c.s3.CreateBucket(ctx, input)
	if err != nil {
		var owned *s3types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return wrapAWSErr(err, "create", "artifact bucket", name)
	}
	return nil
}

// DeleteArtifactBucketRecursive empties the bucket page by page and then
// deletes it.
func (c *Client) DeleteArtifactBucketRecursive(ctx context.Context, name string) error {
	var continuation *string
	for {
		opCtx, cancel := c.opCtx(ctx)
		listed, err := c.s3.ListObjectsV2(opCtx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(name),
			ContinuationToken: continuation,
		})
		cancel()
		if err != nil {
			return wrapAWSErr(err, "list objects in", "artifact bucket", name)
		}

		if len(listed.Contents) > 0 {
			objects := make([]s3types.ObjectIdentifier, 0, len(listed.Contents))
			for _, obj := range listed.Contents {
				objects = append(objects, s3types.ObjectIdentifier{Key: obj.Key})
			}
			opCtx, cancel = c.opCtx(ctx)
			_, err = c.s3.DeleteObjects(opCtx, &s3.DeleteObjectsInput{
				Bucket: aws.String(name),
				Delete: &s3types.Delete{Objects: objects, Quiet: aws.Bool(true)},
			})
			cancel()
			if err != nil {
				return wrapAWSErr(err, "empty", "artifact bucket", name)
			}
		}

		if listed.IsTruncated == nil || !*listed.IsTruncated {
			break
		}
		continuation = listed.NextContinuationToken
	}

	opCtx, cancel := c.opCtx(ctx)
	defer cancel()
	_, err := c.s3.DeleteBucket(opCtx, &s3.DeleteBucketInput{Bucket: aws.String(name)})
	return wrapAWSErr(err, "delete", "artifact bucket", name)
}

// FindArtifactBuckets scans the account's buckets for names starting with
// prefix. Used by the deletion workflow when the metadata record no longer
// knows the derived bucket name.
func (c *Client) FindArtifactBuckets(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	out, err := c.s3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, wrapAWSErr(err, "list", "artifact buckets", prefix)
	}

	var matches []string
	for _, bucket := range out.Buckets {
		if name := aws.ToString(bucket.Name); strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}
	return matches, nil
}
