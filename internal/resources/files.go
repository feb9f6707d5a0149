package resources

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codecommit"
	cctypes "github.com/aws/aws-sdk-go-v2/service/codecommit/types"
)

// GetFile reads one file from a version-controlled repository branch.
func (c *Client) GetFile(ctx context.Context, repo, branch, path string) ([]byte, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	out, err := c.codeCommit.GetFile(ctx, &codecommit.GetFileInput{
		RepositoryName:  aws.String(repo),
		CommitSpecifier: aws.String(branch),
		FilePath:        aws.String(path),
	})
	if err != nil {
		return nil, wrapAWSErr(err, "get", "file", repo+"/"+path)
	}
	return out.FileContent, nil
}

// PutFile commits content to a repository branch, resolving the branch head as
// parent commit. Writing identical content is treated as a no-op success since
// the repository already holds the desired state.
func (c *Client) PutFile(ctx context.Context, repo, branch, path string, content []byte, message string) (string, error) {
	parentCommit, err := c.branchHead(ctx, repo, branch)
	if err != nil && !IsNotFound(err) {
		return "", err
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	input := &codecommit.PutFileInput{
		RepositoryName: aws.String(repo),
		BranchName:     aws.String(branch),
		FilePath:       aws.String(path),
		FileContent:    content,
		CommitMessage:  aws.String(message),
	}
	if parentCommit != "" {
		input.ParentCommitId = aws.String(parentCommit)
	}

	out, err := c.codeCommit.PutFile(ctx, input)
	if err != nil {
		var same *cctypes.SameFileContentException
		if errors.As(err, &same) {
			return parentCommit, nil
		}
		return "", wrapAWSErr(err, "put", "file", repo+"/"+path)
	}
	return aws.ToString(out.CommitId), nil
}

// DeleteFiles deletes each path from the repository branch independently.
// Missing files are skipped; the returned slice holds the paths that were
// actually deleted. A non-nil error reports the paths that failed for reasons
// other than absence.
func (c *Client) DeleteFiles(ctx context.Context, repo, branch string, paths []string, message string) ([]string, error) {
	var deleted []string
	var failures []error

	for _, path := range paths {
		parentCommit, err := c.branchHead(ctx, repo, branch)
		if err != nil {
			if IsNotFound(err) {
				// no branch means nothing to delete
				return deleted, nil
			}
			return deleted, err
		}

		opCtx, cancel := c.opCtx(ctx)
		_, err = c.codeCommit.DeleteFile(opCtx, &codecommit.DeleteFileInput{
			RepositoryName: aws.String(repo),
			BranchName:     aws.String(branch),
			FilePath:       aws.String(path),
			ParentCommitId: aws.String(parentCommit),
			CommitMessage:  aws.String(message),
		})
		cancel()
		if err != nil {
			if wrapped := wrapAWSErr(err, "delete", "file", repo+"/"+path); !IsNotFound(wrapped) {
				failures = append(failures, wrapped)
			}
			continue
		}
		deleted = append(deleted, path)
	}

	if len(failures) > 0 {
		return deleted, errors.Join(failures...)
	}
	return deleted, nil
}

func (c *Client) branchHead(ctx context.Context, repo, branch string) (string, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	out, err := c.codeCommit.GetBranch(ctx, &codecommit.GetBranchInput{
		RepositoryName: aws.String(repo),
		BranchName:     aws.String(branch),
	})
	if err != nil {
		return "", wrapAWSErr(err, "resolve head of", "branch", fmt.Sprintf("%s@%s", repo, branch))
	}
	if out.Branch == nil || out.Branch.CommitId == nil {
		return "", nil
	}
	return aws.ToString(out.Branch.CommitId), nil
}
