package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valid() PipelineRequest {
	return PipelineRequest{
		PipelineName:   "orders-api",
		RepositoryName: "my-org/orders-api",
		BranchName:     "main",
		Buildspec:      map[string]any{"version": "0.2"},
	}
}

func Test_Validate_AcceptsWellFormedRequest(t *testing.T) {
	request := valid()
	assert.NoError(t, request.Validate())
}

func Test_Validate_Name(t *testing.T) {
	scenarios := []struct {
		name         string
		pipelineName string
		wantErr      string
	}{
		{"too short", "ab", "at least 3"},
		{"too long", strings.Repeat("a", 61), "at most 60"},
		{"uppercase", "Orders-Api", "lowercase"},
		{"leading hyphen", "-orders", "start with"},
		{"underscore", "orders_api", "lowercase"},
		{"dot", "orders.api", "lowercase"},
		{"minimal valid", "a1b", ""},
		{"digits and hyphens", "0rders-4pi", ""},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			request := valid()
			request.PipelineName = scenario.pipelineName
			err := request.Validate()
			if scenario.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), scenario.wantErr)
		})
	}
}

func Test_Validate_RequiredFields(t *testing.T) {
	request := valid()
	request.RepositoryName = ""
	assert.ErrorContains(t, request.Validate(), "repositoryName")

	request = valid()
	request.BranchName = ""
	assert.ErrorContains(t, request.Validate(), "branchName")
}

func Test_Validate_BuildspecVariants(t *testing.T) {
	request := valid()
	request.UseBuildspecFile = true
	request.BuildspecPath = ""
	assert.ErrorContains(t, request.Validate(), "buildspecPath")

	request.BuildspecPath = "ci/buildspec.yml"
	assert.NoError(t, request.Validate())

	request = valid()
	request.Buildspec = nil
	assert.ErrorContains(t, request.Validate(), "buildspec")
}

func Test_BatchResult_Succeeded(t *testing.T) {
	batch := BatchResult{Results: []PipelineResult{
		{Status: StatusCreated},
		{Status: StatusError},
		{Status: StatusCreated},
	}}
	assert.Equal(t, 2, batch.Succeeded())
}
