package resources

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	cptypes "github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
)

// PipelineSpec is the provisioning request for one CodePipeline definition.
type PipelineSpec struct {
	Name             string
	RoleARN          string
	ArtifactBucket   string
	ConnectionARN    string
	RepositoryID     string
	Branch           string
	BuildProjectName string
}

// PipelineInfo describes an existing pipeline.
type PipelineInfo struct {
	Name    string
	ARN     string
	Created time.Time
	Updated time.Time
}

func pipelineDeclaration(spec PipelineSpec) *cptypes.PipelineDeclaration {
	return &cptypes.PipelineDeclaration{
		Name:    aws.String(spec.Name),
		RoleArn: aws.String(spec.RoleARN),
		ArtifactStore: &cptypes.ArtifactStore{
			Type:     cptypes.ArtifactStoreTypeS3,
			Location: aws.String(spec.ArtifactBucket),
		},
		Stages: []cptypes.StageDeclaration{
			{
				Name: aws.String("Source"),
				Actions: []cptypes.ActionDeclaration{
					{
						Name: aws.String("Source"),
						ActionTypeId: &cptypes.ActionTypeId{
							Category: cptypes.ActionCategorySource,
							Owner:    cptypes.ActionOwnerAws,
							Provider: aws.String("CodeStarSourceConnection"),
							Version:  aws.String("1"),
						},
						RunOrder: aws.Int32(1),
						Configuration: map[string]string{
							"ConnectionArn":        spec.ConnectionARN,
							"FullRepositoryId":     spec.RepositoryID,
							"BranchName":           spec.Branch,
							"OutputArtifactFormat": "CODE_ZIP",
						},
						OutputArtifacts: []cptypes.OutputArtifact{{Name: aws.String("SourceOutput")}},
					},
				},
			},
			{
				Name: aws.String("Approval"),
				Actions: []cptypes.ActionDeclaration{
					{
						Name: aws.String("ManualApproval"),
						ActionTypeId: &cptypes.ActionTypeId{
							Category: cptypes.ActionCategoryApproval,
							Owner:    cptypes.ActionOwnerAws,
							Provider: aws.String("Manual"),
							Version:  aws.String("1"),
						},
						RunOrder: aws.Int32(1),
					},
				},
			},
			{
				Name: aws.String("Build"),
				Actions: []cptypes.ActionDeclaration{
					{
						Name: aws.String("BuildAction"),
						ActionTypeId: &cptypes.ActionTypeId{
							Category: cptypes.ActionCategoryBuild,
							Owner:    cptypes.ActionOwnerAws,
							Provider: aws.String("CodeBuild"),
							Version:  aws.String("1"),
						},
						RunOrder: aws.Int32(1),
						Configuration: map[string]string{
							"ProjectName": spec.BuildProjectName,
						},
						InputArtifacts:  []cptypes.InputArtifact{{Name: aws.String("SourceOutput")}},
						OutputArtifacts: []cptypes.OutputArtifact{{Name: aws.String("BuildOutput")}},
					},
				},
			},
		},
	}
}

// CreatePipeline creates the CI/CD pipeline and returns its ARN, constructing
// one when the create response does not carry it.
func (c *Client) CreatePipeline(ctx context.Context, spec PipelineSpec) (string, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	out, err := c.codePipeline.CreatePipeline(ctx, &codepipeline.CreatePipelineInput{
		Pipeline: pipelineDeclaration(spec),
	})
	if err != nil {
		return "", wrapAWSErr(err, "create", "pipeline", spec.Name)
	}
	// ARN is only available through the metadata of a follow-up read; fall
	// back to the constructed form when absent.
	if out.Pipeline != nil {
		if info, err := c.DescribePipeline(ctx, spec.Name); err == nil && info.ARN != "" {
			return info.ARN, nil
		}
	}
	return c.PipelineARN(spec.Name), nil
}

// DescribePipeline looks up one pipeline by name.
func (c *Client) DescribePipeline(ctx context.Context, name string) (*PipelineInfo, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	out, err := c.codePipeline.GetPipeline(ctx, &codepipeline.GetPipelineInput{
		Name: aws.String(name),
	})
	if err != nil {
		return nil, wrapAWSErr(err, "describe", "pipeline", name)
	}

	info := &PipelineInfo{Name: name, ARN: c.PipelineARN(name)}
	if out.Metadata != nil {
		if out.Metadata.PipelineArn != nil {
			info.ARN = aws.ToString(out.Metadata.PipelineArn)
		}
		if out.Metadata.Created != nil {
			info.Created = *out.Metadata.Created
		}
		if out.Metadata.Updated != nil {
			info.Updated = *out.Metadata.Updated
		}
	}
	return info, nil
}

// DeletePipeline removes the pipeline definition.
func (c *Client) DeletePipeline(ctx context.Context, name string) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	_, err := c.codePipeline.DeletePipeline(ctx, &codepipeline.DeletePipelineInput{
		Name: aws.String(name),
	})
	return wrapAWSErr(err, "delete", "pipeline", name)
}

// ListPipelines returns every pipeline in the account/region, following
// pagination.
func (c *Client) ListPipelines(ctx context.Context) ([]PipelineInfo, error) {
	var pipelines []PipelineInfo
	var nextToken *string

	for {
		opCtx, cancel := c.opCtx(ctx)
		out, err := c.codePipeline.ListPipelines(opCtx, &codepipeline.ListPipelinesInput{NextToken: nextToken})
		cancel()
		if err != nil {
			return nil, wrapAWSErr(err, "list", "pipelines", "")
		}

		for _, p := range out.Pipelines {
			info := PipelineInfo{Name: aws.ToString(p.Name)}
			if p.Created != nil {
				info.Created = *p.Created
			}
			if p.Updated != nil {
				info.Updated = *p.Updated
			}
			info.ARN = c.PipelineARN(info.Name)
			pipelines = append(pipelines, info)
		}

		if out.NextToken == nil {
			return pipelines, nil
		}
		nextToken = out.NextToken
	}
}
