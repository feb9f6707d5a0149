package pipelines

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/equinor/pipeline-builder-api/api/metrics"
	pipelinemodels "github.com/equinor/pipeline-builder-api/api/pipelines/models"
	apihttp "github.com/equinor/pipeline-builder-api/http"
	"github.com/equinor/pipeline-builder-api/internal/manifest"
	"github.com/equinor/pipeline-builder-api/internal/metadata"
	"github.com/equinor/pipeline-builder-api/internal/resources"
	"github.com/equinor/pipeline-builder-api/models"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	buildProjectSuffix   = "-build"
	artifactBucketInfix  = "-artifacts-"
	defaultComputeType   = "BUILD_GENERAL1_SMALL"
	deploymentFileSuffix = "/deployment.yaml"
	scalingFileSuffix    = "/scaling.yaml"
	appsettingsSuffix    = "/appsettings.json"
)

// Outcome labels for the provisioning counter.
const (
	outcomeCreated = "created"
	outcomeFailed  = "failed"
)

// PipelineHandler Instance variables
type PipelineHandler struct {
	services models.Services
}

// Init Constructor
func Init(services models.Services) PipelineHandler {
	return PipelineHandler{services: services}
}

// ProvisionBatch provisions every requested pipeline independently. One
// pipeline failing never stops the rest of the batch.
func (h PipelineHandler) ProvisionBatch(ctx context.Context, requests []pipelinemodels.PipelineRequest) pipelinemodels.BatchResult {
	runId := ulid.Make().String()
	logger := zerolog.Ctx(ctx).With().Str("run_id", runId).Logger()
	ctx = logger.WithContext(ctx)

	batch := pipelinemodels.BatchResult{Results: make([]pipelinemodels.PipelineResult, 0, len(requests))}
	for _, request := range requests {
		result := h.provisionOne(ctx, runId, request)
		if result.Status == pipelinemodels.StatusCreated {
			metrics.AddPipelineProvisioned(outcomeCreated)
		} else {
			metrics.AddPipelineProvisioned(outcomeFailed)
		}
		batch.Results = append(batch.Results, result)
	}

	batch.Success = len(requests) > 0 && batch.Succeeded() == len(requests)
	return batch
}

func (h PipelineHandler) provisionOne(ctx context.Context, runId string, request pipelinemodels.PipelineRequest) pipelinemodels.PipelineResult {
	logger := zerolog.Ctx(ctx).With().Str("pipeline", request.PipelineName).Logger()
	ctx = logger.WithContext(ctx)

	fail := func(err error) pipelinemodels.PipelineResult {
		logger.Error().Err(err).Msg("Provisioning failed")
		return pipelinemodels.PipelineResult{
			PipelineName: request.PipelineName,
			Status:       pipelinemodels.StatusError,
			Error:        err.Error(),
		}
	}

	if err := request.Validate(); err != nil {
		return fail(err)
	}

	buildProjectName := request.PipelineName + buildProjectSuffix
	bucketName := fmt.Sprintf("%s%s%d", request.PipelineName, artifactBucketInfix, time.Now().Unix())

	if err := h.preflight(ctx, request.PipelineName, buildProjectName); err != nil {
		return fail(err)
	}

	buildspec, err := resolveBuildspec(request)
	if err != nil {
		return fail(err)
	}

	// Undo steps are pushed right after each successful creation and run in
	// reverse when a later step fails.
	type undoStep struct {
		kind string
		fn   func(context.Context) error
	}
	var undo []undoStep
	rollback := func() {
		metrics.AddRollback()
		for i := len(undo) - 1; i >= 0; i-- {
			step := undo[i]
			if err := step.fn(ctx); err != nil {
				logger.Error().Err(err).Str("kind", step.kind).Msg("Rollback step failed")
				continue
			}
			logger.Info().Str("kind", step.kind).Msg("Rolled back")
		}
	}

	created, err := h.services.Resources.EnsureRepository(ctx, request.PipelineName)
	if err != nil {
		return fail(fmt.Errorf("creating container registry: %w", err))
	}
	if created {
		undo = append(undo, undoStep{"container registry", func(ctx context.Context) error {
			return h.services.Resources.DeleteRepository(ctx, request.PipelineName)
		}})
	}

	if err := h.services.Resources.CreateArtifactBucket(ctx, bucketName); err != nil {
		rollback()
		return fail(fmt.Errorf("creating artifact bucket: %w", err))
	}
	undo = append(undo, undoStep{"artifact bucket", func(ctx context.Context) error {
		return h.services.Resources.DeleteArtifactBucketRecursive(ctx, bucketName)
	}})

	cfg := h.services.Config
	projectSpec := resources.BuildProjectSpec{
		Name:                     buildProjectName,
		Buildspec:                buildspec,
		ComputeType:              computeTypeOrDefault(request.ComputeType),
		EnvironmentType:          cfg.BuildEnvironmentType,
		Image:                    cfg.BuildImage,
		PrivilegedMode:           true,
		ImagePullCredentialsType: "CODEBUILD",
		ServiceRoleARN:           h.services.Resources.RoleARN(cfg.BuildRoleName),
		SecurityGroupIDs:         splitList(cfg.BuildSecurityGroups),
		EnvironmentVariables:     request.EnvironmentVariables,
	}
	if err := h.services.Resources.CreateBuildProject(ctx, projectSpec); err != nil {
		rollback()
		return fail(fmt.Errorf("creating build project: %w", err))
	}
	undo = append(undo, undoStep{"build project", func(ctx context.Context) error {
		return h.services.Resources.DeleteBuildProject(ctx, buildProjectName)
	}})

	connectionArn, err := h.services.Resources.ResolveConnectionARN(ctx, cfg.ConnectionName)
	if err != nil {
		if connectionArn == "" {
			rollback()
			return fail(fmt.Errorf("resolving source connection: %w", err))
		}
		logger.Warn().Err(err).Str("connection_arn", connectionArn).Msg("Source connection not listed, using constructed ARN")
	}

	pipelineArn, err := h.services.Resources.CreatePipeline(ctx, resources.PipelineSpec{
		Name:             request.PipelineName,
		RoleARN:          h.services.Resources.RoleARN(cfg.PipelineRoleName),
		ArtifactBucket:   bucketName,
		ConnectionARN:    connectionArn,
		RepositoryID:     request.RepositoryName,
		Branch:           request.BranchName,
		BuildProjectName: buildProjectName,
	})
	if err != nil {
		rollback()
		return fail(fmt.Errorf("creating pipeline: %w", err))
	}
	undo = append(undo, undoStep{"pipeline", func(ctx context.Context) error {
		return h.services.Resources.DeletePipeline(ctx, request.PipelineName)
	}})

	// Companion files are best effort. A failed upload is logged and never
	// tears down the infrastructure that already works.
	h.uploadCompanionFiles(ctx, runId, request)

	record := &metadata.Record{
		Name:                 request.PipelineName,
		RepositoryName:       request.RepositoryName,
		BranchName:           request.BranchName,
		ComputeType:          projectSpec.ComputeType,
		BuildspecPath:        request.BuildspecPath,
		UseBuildspecFile:     request.UseBuildspecFile,
		Buildspec:            buildspec,
		EnvironmentVariables: request.EnvironmentVariables,
		Deployment:           request.Deployment,
		Scaling:              request.Scaling,
		Appsettings:          request.Appsettings,
		BuildProjectName:     buildProjectName,
		RegistryRepository:   request.PipelineName,
		ArtifactBucket:       bucketName,
		PipelineARN:          pipelineArn,
	}
	// The infrastructure is up and working at this point, so a failed record
	// write does not tear it down. Deletion can still find every resource from
	// the derived names.
	if err := h.services.Store.SavePipeline(ctx, record); err != nil {
		logger.Error().Err(err).Msg("Persisting metadata failed")
		return pipelinemodels.PipelineResult{
			PipelineName: request.PipelineName,
			PipelineArn:  pipelineArn,
			Status:       pipelinemodels.StatusError,
			Error:        fmt.Sprintf("persisting metadata: %v", err),
		}
	}

	logger.Info().Str("pipeline_arn", pipelineArn).Msg("Pipeline provisioned")
	return pipelinemodels.PipelineResult{
		PipelineName: request.PipelineName,
		PipelineArn:  pipelineArn,
		Status:       pipelinemodels.StatusCreated,
	}
}

// preflight refuses to provision over resources that already exist, including
// companion files left behind in the manifest and appsettings repositories.
// The lookups are independent and run concurrently.
func (h PipelineHandler) preflight(ctx context.Context, pipelineName, buildProjectName string) error {
	cfg := h.services.Config
	conflicts := make([]string, 6)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := h.services.Resources.DescribeRepository(ctx, pipelineName)
		switch {
		case err == nil:
			conflicts[0] = "container registry " + pipelineName
		case !resources.IsNotFound(err):
			return err
		}
		return nil
	})
	g.Go(func() error {
		_, err := h.services.Resources.DescribeBuildProject(ctx, buildProjectName)
		switch {
		case err == nil:
			conflicts[1] = "build project " + buildProjectName
		case !resources.IsNotFound(err):
			return err
		}
		return nil
	})
	g.Go(func() error {
		_, err := h.services.Resources.DescribePipeline(ctx, pipelineName)
		switch {
		case err == nil:
			conflicts[2] = "pipeline " + pipelineName
		case !resources.IsNotFound(err):
			return err
		}
		return nil
	})

	fileCheck := func(slot int, repo, branch, path string) func() error {
		return func() error {
			_, err := h.services.Resources.GetFile(ctx, repo, branch, path)
			switch {
			case err == nil:
				conflicts[slot] = "file " + repo + "/" + path
			case !resources.IsNotFound(err):
				return err
			}
			return nil
		}
	}
	g.Go(fileCheck(3, cfg.ManifestRepository, cfg.ManifestBranch, pipelineName+deploymentFileSuffix))
	g.Go(fileCheck(4, cfg.ManifestRepository, cfg.ManifestBranch, pipelineName+scalingFileSuffix))
	g.Go(fileCheck(5, cfg.AppsettingsRepository, cfg.AppsettingsBranch, pipelineName+appsettingsSuffix))

	if err := g.Wait(); err != nil {
		return fmt.Errorf("pre-flight checks: %w", err)
	}

	var existing []string
	for _, conflict := range conflicts {
		if conflict != "" {
			existing = append(existing, conflict)
		}
	}
	if len(existing) > 0 {
		return fmt.Errorf("already exists: %s", strings.Join(existing, ", "))
	}
	return nil
}

func (h PipelineHandler) uploadCompanionFiles(ctx context.Context, runId string, request pipelinemodels.PipelineRequest) {
	logger := zerolog.Ctx(ctx)
	cfg := h.services.Config

	put := func(repo, branch, path, content, message string) {
		if _, err := h.services.Resources.PutFile(ctx, repo, branch, path, []byte(content), message); err != nil {
			logger.Warn().Err(err).Str("repository", repo).Str("path", path).Msg("Upload failed")
			return
		}
		logger.Info().Str("repository", repo).Str("path", path).Msg("Uploaded")
	}

	if request.Appsettings != nil {
		content, err := h.services.Manifests.RenderAppsettings(request.PipelineName, request.Appsettings)
		if err != nil {
			logger.Warn().Err(err).Msg("Rendering appsettings failed")
		} else {
			put(cfg.AppsettingsRepository, cfg.AppsettingsBranch, request.PipelineName+appsettingsSuffix, content,
				fmt.Sprintf("Add application settings for %s (run %s)", request.PipelineName, runId))
		}
	}

	if request.Deployment != nil {
		imageUri := h.services.Resources.RegistryURI() + "/" + request.PipelineName + ":latest"
		content, err := h.services.Manifests.RenderDeployment(request.PipelineName, imageUri, *request.Deployment)
		if err != nil {
			logger.Warn().Err(err).Msg("Rendering deployment manifest failed")
		} else {
			put(cfg.ManifestRepository, cfg.ManifestBranch, request.PipelineName+deploymentFileSuffix, content,
				fmt.Sprintf("Add deployment manifest for %s (run %s)", request.PipelineName, runId))
		}
	}

	if request.Scaling != nil {
		namespace := manifest.DefaultNamespace
		if request.Deployment != nil && request.Deployment.Namespace != "" {
			namespace = request.Deployment.Namespace
		}
		content, err := h.services.Manifests.RenderScaling(request.PipelineName, namespace, *request.Scaling)
		if err != nil {
			logger.Warn().Err(err).Msg("Rendering scaling manifest failed")
		} else {
			put(cfg.ManifestRepository, cfg.ManifestBranch, request.PipelineName+scalingFileSuffix, content,
				fmt.Sprintf("Add scaling manifest for %s (run %s)", request.PipelineName, runId))
		}
	}
}

// DeleteResources tears down everything provisioned for a pipeline. Missing
// resources are skipped silently; the run succeeds when at least one resource
// was actually removed.
func (h PipelineHandler) DeleteResources(ctx context.Context, pipelineName string) pipelinemodels.DeletionResult {
	logger := zerolog.Ctx(ctx).With().Str("pipeline", pipelineName).Logger()
	ctx = logger.WithContext(ctx)
	cfg := h.services.Config

	result := pipelinemodels.DeletionResult{Deleted: []string{}}

	record, err := h.services.Store.GetPipeline(ctx, pipelineName)
	if err != nil && !errors.Is(err, metadata.ErrRecordNotFound) {
		result.Errors = append(result.Errors, "reading metadata: "+err.Error())
	}

	attempt := func(kind, name string, fn func() error) {
		err := fn()
		switch {
		case err == nil:
			result.Deleted = append(result.Deleted, kind+": "+name)
			metrics.AddResourceDeleted(kind)
		case resources.IsNotFound(err):
			logger.Debug().Str("kind", kind).Str("name", name).Msg("Already gone")
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", kind, name, err))
		}
	}

	buildProjectName := pipelineName + buildProjectSuffix
	attempt("pipeline", pipelineName, func() error {
		return h.services.Resources.DeletePipeline(ctx, pipelineName)
	})
	attempt("build project", buildProjectName, func() error {
		return h.services.Resources.DeleteBuildProject(ctx, buildProjectName)
	})
	attempt("container registry", pipelineName, func() error {
		return h.services.Resources.DeleteRepository(ctx, pipelineName)
	})

	for _, bucket := range h.artifactBuckets(ctx, pipelineName, record) {
		bucket := bucket
		attempt("artifact bucket", bucket, func() error {
			return h.services.Resources.DeleteArtifactBucketRecursive(ctx, bucket)
		})
	}

	manifestPaths := []string{pipelineName + deploymentFileSuffix, pipelineName + scalingFileSuffix}
	deleted, err := h.services.Resources.DeleteFiles(ctx, cfg.ManifestRepository, cfg.ManifestBranch, manifestPaths,
		fmt.Sprintf("Remove manifests for %s", pipelineName))
	if err != nil {
		result.Errors = append(result.Errors, "deleting manifests: "+err.Error())
	}
	for _, path := range deleted {
		result.Deleted = append(result.Deleted, "manifest file: "+path)
		metrics.AddResourceDeleted("manifest file")
	}

	deleted, err = h.services.Resources.DeleteFiles(ctx, cfg.AppsettingsRepository, cfg.AppsettingsBranch,
		[]string{pipelineName + appsettingsSuffix}, fmt.Sprintf("Remove application settings for %s", pipelineName))
	if err != nil {
		result.Errors = append(result.Errors, "deleting appsettings: "+err.Error())
	}
	for _, path := range deleted {
		result.Deleted = append(result.Deleted, "appsettings file: "+path)
		metrics.AddResourceDeleted("appsettings file")
	}

	// Metadata goes last so a partially failed run can be retried with the
	// record still in place.
	existed, err := h.services.Store.DeletePipeline(ctx, pipelineName)
	if err != nil {
		result.Errors = append(result.Errors, "deleting metadata: "+err.Error())
	} else if existed {
		result.Deleted = append(result.Deleted, "metadata: "+pipelineName)
		metrics.AddResourceDeleted("metadata")
	}

	// Whoever held the editing lock has nothing left to edit.
	_ = h.services.Locks.Release(pipelineName, "", true)

	result.Success = len(result.Deleted) > 0
	return result
}

func (h PipelineHandler) artifactBuckets(ctx context.Context, pipelineName string, record *metadata.Record) []string {
	if record != nil && record.ArtifactBucket != "" {
		return []string{record.ArtifactBucket}
	}
	buckets, err := h.services.Resources.FindArtifactBuckets(ctx, pipelineName+artifactBucketInfix)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Listing artifact buckets failed")
		return nil
	}
	return buckets
}

// ListPipelines merges the stored records with the remote pipeline listing and
// the current lock state. Records without a remote pipeline are flagged stale,
// remote pipelines without a record are appended as orphans.
func (h PipelineHandler) ListPipelines(ctx context.Context) ([]pipelinemodels.PipelineSummary, error) {
	records, err := h.services.Store.ListPipelines(ctx)
	if err != nil {
		return nil, apihttp.UnexpectedError("Failed to list pipelines", err)
	}

	remote := map[string]resources.PipelineInfo{}
	remotePipelines, err := h.services.Resources.ListPipelines(ctx)
	remoteKnown := err == nil
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Listing remote pipelines failed")
	}
	for _, info := range remotePipelines {
		remote[info.Name] = info
	}

	lockInfo := h.services.Locks.AllStatuses()
	summaries := make([]pipelinemodels.PipelineSummary, 0, len(records))
	for _, record := range records {
		summary := pipelinemodels.PipelineSummary{
			Name:           record.Name,
			RepositoryName: record.RepositoryName,
			BranchName:     record.BranchName,
			PipelineArn:    record.PipelineARN,
			LastUpdated:    record.LastUpdated.Format(time.RFC3339),
		}
		if _, ok := remote[record.Name]; ok {
			delete(remote, record.Name)
		} else if remoteKnown {
			summary.Stale = true
		}
		if info, ok := lockInfo[record.Name]; ok {
			summary.Locked = true
			summary.LockedBy = info.Holder
		}
		summaries = append(summaries, summary)
	}

	orphans := make([]string, 0, len(remote))
	for name := range remote {
		orphans = append(orphans, name)
	}
	sort.Strings(orphans)
	for _, name := range orphans {
		summaries = append(summaries, pipelinemodels.PipelineSummary{
			Name:        name,
			PipelineArn: remote[name].ARN,
			Orphaned:    true,
		})
	}
	return summaries, nil
}

// GetPipeline returns the stored configuration of one pipeline.
func (h PipelineHandler) GetPipeline(ctx context.Context, pipelineName string) (*metadata.Record, error) {
	record, err := h.services.Store.GetPipeline(ctx, pipelineName)
	if errors.Is(err, metadata.ErrRecordNotFound) {
		return nil, apihttp.TypeMissingError(fmt.Sprintf("Pipeline %s not found", pipelineName), err)
	}
	if err != nil {
		return nil, apihttp.UnexpectedError("Failed to read pipeline", err)
	}
	return record, nil
}

// SavePipeline updates the stored configuration of an existing pipeline.
// Edits are refused while another holder has the editing lock. The build
// project is updated best effort so the next run picks up the new buildspec.
func (h PipelineHandler) SavePipeline(ctx context.Context, pipelineName, holder string, request pipelinemodels.PipelineRequest) (*metadata.Record, error) {
	if info, locked := h.services.Locks.Status(pipelineName); locked && info.Holder != holder {
		return nil, apihttp.ConflictError(fmt.Sprintf("Pipeline %s is locked by another user", pipelineName), info)
	}

	record, err := h.GetPipeline(ctx, pipelineName)
	if err != nil {
		return nil, err
	}
	if err := request.Validate(); err != nil {
		return nil, apihttp.ValidationError("PipelineRequest", err.Error())
	}

	buildspec, err := resolveBuildspec(request)
	if err != nil {
		return nil, apihttp.ValidationError("PipelineRequest", err.Error())
	}

	record.RepositoryName = request.RepositoryName
	record.BranchName = request.BranchName
	record.ComputeType = computeTypeOrDefault(request.ComputeType)
	record.BuildspecPath = request.BuildspecPath
	record.UseBuildspecFile = request.UseBuildspecFile
	record.Buildspec = buildspec
	record.EnvironmentVariables = request.EnvironmentVariables
	record.Deployment = request.Deployment
	record.Scaling = request.Scaling
	record.Appsettings = request.Appsettings

	if err := h.services.Store.SavePipeline(ctx, record); err != nil {
		return nil, apihttp.UnexpectedError("Failed to save pipeline", err)
	}

	cfg := h.services.Config
	err = h.services.Resources.UpdateBuildProject(ctx, resources.BuildProjectSpec{
		Name:                     record.BuildProjectName,
		Buildspec:                buildspec,
		ComputeType:              record.ComputeType,
		EnvironmentType:          cfg.BuildEnvironmentType,
		Image:                    cfg.BuildImage,
		PrivilegedMode:           true,
		ImagePullCredentialsType: "CODEBUILD",
		ServiceRoleARN:           h.services.Resources.RoleARN(cfg.BuildRoleName),
		SecurityGroupIDs:         splitList(cfg.BuildSecurityGroups),
		EnvironmentVariables:     record.EnvironmentVariables,
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("pipeline", pipelineName).Msg("Updating build project failed")
	}

	return record, nil
}

// RenderManifests renders the deployment and scaling manifests of a stored
// pipeline as one YAML document.
func (h PipelineHandler) RenderManifests(ctx context.Context, pipelineName string) (string, error) {
	record, err := h.GetPipeline(ctx, pipelineName)
	if err != nil {
		return "", err
	}

	deployCfg := manifest.DeploymentConfig{}
	if record.Deployment != nil {
		deployCfg = *record.Deployment
	}
	imageUri := h.services.Resources.RegistryURI() + "/" + pipelineName + ":latest"
	rendered, err := h.services.Manifests.RenderDeployment(pipelineName, imageUri, deployCfg)
	if err != nil {
		return "", apihttp.UnexpectedError("Failed to render deployment manifest", err)
	}

	if record.Scaling != nil {
		namespace := manifest.DefaultNamespace
		if record.Deployment != nil && record.Deployment.Namespace != "" {
			namespace = record.Deployment.Namespace
		}
		scaling, err := h.services.Manifests.RenderScaling(pipelineName, namespace, *record.Scaling)
		if err != nil {
			return "", apihttp.UnexpectedError("Failed to render scaling manifest", err)
		}
		rendered = rendered + "\n---\n" + scaling
	}

	return rendered, nil
}

// RenderAppsettings renders the application settings file of a stored pipeline.
func (h PipelineHandler) RenderAppsettings(ctx context.Context, pipelineName string) (string, error) {
	record, err := h.GetPipeline(ctx, pipelineName)
	if err != nil {
		return "", err
	}

	rendered, err := h.services.Manifests.RenderAppsettings(pipelineName, record.Appsettings)
	if err != nil {
		return "", apihttp.UnexpectedError("Failed to render application settings", err)
	}
	return rendered, nil
}

func resolveBuildspec(request pipelinemodels.PipelineRequest) (string, error) {
	if request.UseBuildspecFile {
		return request.BuildspecPath, nil
	}
	rendered, err := yaml.Marshal(request.Buildspec)
	if err != nil {
		return "", fmt.Errorf("rendering buildspec: %w", err)
	}
	return string(rendered), nil
}

func computeTypeOrDefault(computeType string) string {
	if computeType == "" {
		return defaultComputeType
	}
	return computeType
}

func splitList(commaSeparated string) []string {
	if commaSeparated == "" {
		return nil
	}
	parts := strings.Split(commaSeparated, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
