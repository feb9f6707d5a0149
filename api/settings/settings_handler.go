// Package settings serves the two singleton configuration blobs: the
// provisioning defaults and the environment variable suggestions.
package settings

import (
	"context"
	"encoding/json"
	"errors"

	apihttp "github.com/equinor/pipeline-builder-api/http"
	"github.com/equinor/pipeline-builder-api/internal/metadata"
	"github.com/equinor/pipeline-builder-api/models"
	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Hard-coded fallbacks. A stored blob is merged over these so a partial
// customization never drops a required field.
var defaultPipelineSettings = map[string]any{
	"pipelineRoleName":     "codepipeline-service-role",
	"buildRoleName":        "codebuild-service-role",
	"connectionName":       "git-connection",
	"buildImage":           "aws/codebuild/standard:7.0",
	"buildEnvironmentType": "LINUX_CONTAINER",
	"useSharedNetwork":     true,
	"buildspecSkeleton": map[string]any{
		"version": "0.2",
		"phases": map[string]any{
			"pre_build": map[string]any{
				"commands": []any{"aws ecr get-login-password | docker login --username AWS --password-stdin $REGISTRY"},
			},
			"build": map[string]any{
				"commands": []any{"docker build -t $REGISTRY/$PIPELINE_NAME:latest .", "docker push $REGISTRY/$PIPELINE_NAME:latest"},
			},
		},
	},
}

var defaultEnvSuggestions = map[string]any{
	"LOG_LEVEL":   []any{"debug", "info", "warn", "error"},
	"ENVIRONMENT": []any{"dev", "test", "prod"},
	"SMCREDS":     []any{"database-secrets", "api-keys"},
}

// SettingsHandler Instance variables
type SettingsHandler struct {
	services models.Services
}

// Init Constructor
func Init(services models.Services) SettingsHandler {
	return SettingsHandler{services: services}
}

func defaultsFor(kind string) map[string]any {
	if kind == metadata.SettingsKindEnvSuggestions {
		return defaultEnvSuggestions
	}
	return defaultPipelineSettings
}

// GetSettings returns the stored blob deep-merged over the hard-coded
// defaults.
func (h SettingsHandler) GetSettings(ctx context.Context, kind string) (map[string]any, error) {
	stored, err := h.services.Store.GetSettings(ctx, kind)
	if errors.Is(err, metadata.ErrRecordNotFound) {
		return defaultsFor(kind), nil
	}
	if err != nil {
		return nil, apihttp.UnexpectedError("Failed to read settings", err)
	}

	merged, err := merge(defaultsFor(kind), stored)
	if err != nil {
		return nil, apihttp.UnexpectedError("Failed to merge settings", err)
	}
	return merged, nil
}

// SaveSettings persists a settings blob.
func (h SettingsHandler) SaveSettings(ctx context.Context, kind string, blob map[string]any) error {
	if len(blob) == 0 {
		return apihttp.ValidationError("Settings", "Settings must be a non-empty JSON object")
	}
	if err := h.services.Store.SaveSettings(ctx, kind, blob); err != nil {
		return apihttp.UnexpectedError("Failed to save settings", err)
	}
	return nil
}

// merge applies overrides onto defaults as an RFC 7386 merge patch, so nested
// objects are merged key by key instead of replaced wholesale.
func merge(defaults, overrides map[string]any) (map[string]any, error) {
	defaultsJson, err := json.Marshal(defaults)
	if err != nil {
		return nil, err
	}
	overridesJson, err := json.Marshal(overrides)
	if err != nil {
		return nil, err
	}

	mergedJson, err := jsonpatch.MergePatch(defaultsJson, overridesJson)
	if err != nil {
		return nil, err
	}

	var merged map[string]any
	if err := json.Unmarshal(mergedJson, &merged); err != nil {
		return nil, err
	}
	return merged, nil
}
