package models

import (
	"github.com/equinor/pipeline-builder-api/internal/config"
	"github.com/equinor/pipeline-builder-api/internal/locks"
	"github.com/equinor/pipeline-builder-api/internal/manifest"
	"github.com/equinor/pipeline-builder-api/internal/metadata"
	"github.com/equinor/pipeline-builder-api/internal/resources"
)

// Services carries the shared dependencies handed to every handler. Built
// once in main, faked in controller tests.
type Services struct {
	Config    config.Config
	Locks     *locks.Manager
	Store     metadata.Store
	Resources resources.API
	Manifests *manifest.Generator
}
