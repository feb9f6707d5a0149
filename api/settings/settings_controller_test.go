package settings

import (
	"net/http"
	"testing"

	controllertest "github.com/equinor/pipeline-builder-api/api/test"
	"github.com/equinor/pipeline-builder-api/internal/metadata"
	"github.com/equinor/pipeline-builder-api/internal/metadata/mock"
	"github.com/equinor/pipeline-builder-api/models"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTest(t *testing.T) (*mock.MockStore, controllertest.Utils) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mock.NewMockStore(ctrl)
	services := models.Services{Store: store}
	return store, controllertest.NewTestUtils(services, NewSettingsController())
}

func Test_GetSettings_NoStoredBlob_ReturnsDefaults(t *testing.T) {
	store, tu := setupTest(t)
	store.EXPECT().GetSettings(gomock.Any(), metadata.SettingsKindPipeline).Return(nil, metadata.ErrRecordNotFound)

	response := <-tu.ExecuteRequest("GET", "/api/v1/settings")
	assert.Equal(t, http.StatusOK, response.Code)

	var settings map[string]any
	require.NoError(t, controllertest.GetResponseBody(response, &settings))
	assert.Equal(t, "git-connection", settings["connectionName"])
	assert.Contains(t, settings, "buildspecSkeleton")
}

func Test_GetSettings_StoredBlobMergedOverDefaults(t *testing.T) {
	store, tu := setupTest(t)
	store.EXPECT().GetSettings(gomock.Any(), metadata.SettingsKindPipeline).Return(map[string]any{
		"connectionName": "github-connection",
		"buildspecSkeleton": map[string]any{
			"version": "0.3",
		},
	}, nil)

	response := <-tu.ExecuteRequest("GET", "/api/v1/settings")
	assert.Equal(t, http.StatusOK, response.Code)

	var settings map[string]any
	require.NoError(t, controllertest.GetResponseBody(response, &settings))

	// overridden fields win, untouched defaults survive
	assert.Equal(t, "github-connection", settings["connectionName"])
	assert.Equal(t, "aws/codebuild/standard:7.0", settings["buildImage"])

	skeleton, ok := settings["buildspecSkeleton"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0.3", skeleton["version"])
	assert.Contains(t, skeleton, "phases")
}

func Test_SaveSettings_PersistsBlob(t *testing.T) {
	store, tu := setupTest(t)
	blob := map[string]any{"connectionName": "github-connection"}
	store.EXPECT().SaveSettings(gomock.Any(), metadata.SettingsKindPipeline, gomock.Any()).Return(nil)

	response := <-tu.ExecuteRequestWithParameters("POST", "/api/v1/settings", blob)
	assert.Equal(t, http.StatusOK, response.Code)
}

func Test_SaveSettings_EmptyObject_Rejected(t *testing.T) {
	_, tu := setupTest(t)

	response := <-tu.ExecuteRequestWithParameters("POST", "/api/v1/settings", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, response.Code)

	errorResponse, err := controllertest.GetErrorResponse(response)
	require.NoError(t, err)
	assert.Equal(t, "user", errorResponse.Type)
}

func Test_SaveSettings_NonObjectBody_Rejected(t *testing.T) {
	_, tu := setupTest(t)

	response := <-tu.ExecuteRequestWithParameters("POST", "/api/v1/settings", []string{"not", "an", "object"})
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func Test_EnvSuggestions_RoundTrip(t *testing.T) {
	store, tu := setupTest(t)
	store.EXPECT().GetSettings(gomock.Any(), metadata.SettingsKindEnvSuggestions).Return(nil, metadata.ErrRecordNotFound)

	response := <-tu.ExecuteRequest("GET", "/api/v1/env-suggestions")
	assert.Equal(t, http.StatusOK, response.Code)

	var suggestions map[string]any
	require.NoError(t, controllertest.GetResponseBody(response, &suggestions))
	assert.Contains(t, suggestions, "LOG_LEVEL")

	store.EXPECT().SaveSettings(gomock.Any(), metadata.SettingsKindEnvSuggestions, gomock.Any()).Return(nil)
	response = <-tu.ExecuteRequestWithParameters("POST", "/api/v1/env-suggestions", map[string]any{
		"SMCREDS": []string{"payment-secrets"},
	})
	assert.Equal(t, http.StatusOK, response.Code)
}
