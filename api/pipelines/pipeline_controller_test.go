package pipelines

import (
	"errors"
	"net/http"
	"testing"

	pipelinemodels "github.com/equinor/pipeline-builder-api/api/pipelines/models"
	controllertest "github.com/equinor/pipeline-builder-api/api/test"
	"github.com/equinor/pipeline-builder-api/internal/metadata"
	"github.com/equinor/pipeline-builder-api/internal/metadata/mock"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTest(t *testing.T, fake *fakeResources, store metadata.Store) controllertest.Utils {
	t.Helper()
	return controllertest.NewTestUtils(testServices(t, fake, store), NewPipelineController())
}

func Test_ProvisionPipelines_AllCreated_Returns200(t *testing.T) {
	ctrl := gomock.NewController(t)
	fake := newFakeResources()
	store := mock.NewMockStore(ctrl)
	store.EXPECT().SavePipeline(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	tu := setupTest(t, fake, store)
	response := <-tu.ExecuteRequestWithParameters("POST", "/api/v1/pipelines", []pipelinemodels.PipelineRequest{
		validRequest("svc-a"), validRequest("svc-b"),
	})

	assert.Equal(t, http.StatusOK, response.Code)
	var batch pipelinemodels.BatchResult
	require.NoError(t, controllertest.GetResponseBody(response, &batch))
	assert.True(t, batch.Success)
	require.Len(t, batch.Results, 2)
}

func Test_ProvisionPipelines_PartialFailure_Returns207(t *testing.T) {
	ctrl := gomock.NewController(t)
	fake := newFakeResources()
	fake.createPipelineErr = func(name string) error {
		if name == "svc-b" {
			return errors.New("role not assumable")
		}
		return nil
	}
	store := mock.NewMockStore(ctrl)
	store.EXPECT().SavePipeline(gomock.Any(), gomock.Any()).Return(nil)

	tu := setupTest(t, fake, store)
	response := <-tu.ExecuteRequestWithParameters("POST", "/api/v1/pipelines", []pipelinemodels.PipelineRequest{
		validRequest("svc-a"), validRequest("svc-b"),
	})

	assert.Equal(t, http.StatusMultiStatus, response.Code)
	var batch pipelinemodels.BatchResult
	require.NoError(t, controllertest.GetResponseBody(response, &batch))
	assert.False(t, batch.Success)
}

func Test_ProvisionPipelines_AllFailed_Returns400(t *testing.T) {
	ctrl := gomock.NewController(t)
	fake := newFakeResources()
	fake.createPipelineErr = func(name string) error {
		return errors.New("role not assumable")
	}
	store := mock.NewMockStore(ctrl)

	tu := setupTest(t, fake, store)
	response := <-tu.ExecuteRequestWithParameters("POST", "/api/v1/pipelines", []pipelinemodels.PipelineRequest{
		validRequest("svc-a"),
	})

	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func Test_ProvisionPipelines_EmptyBatch_Returns400(t *testing.T) {
	ctrl := gomock.NewController(t)
	tu := setupTest(t, newFakeResources(), mock.NewMockStore(ctrl))

	response := <-tu.ExecuteRequestWithParameters("POST", "/api/v1/pipelines", []pipelinemodels.PipelineRequest{})
	assert.Equal(t, http.StatusBadRequest, response.Code)

	errorResponse, err := controllertest.GetErrorResponse(response)
	require.NoError(t, err)
	assert.Contains(t, errorResponse.Message, "At least one pipeline")
}

func Test_ProvisionPipelines_MalformedBody_Returns400(t *testing.T) {
	ctrl := gomock.NewController(t)
	tu := setupTest(t, newFakeResources(), mock.NewMockStore(ctrl))

	response := <-tu.ExecuteRequestWithParameters("POST", "/api/v1/pipelines", map[string]string{"not": "an array"})
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func Test_GetPipeline_Unknown_Returns404(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockStore(ctrl)
	store.EXPECT().GetPipeline(gomock.Any(), "ghost").Return(nil, metadata.ErrRecordNotFound)

	tu := setupTest(t, newFakeResources(), store)
	response := <-tu.ExecuteRequest("GET", "/api/v1/pipelines/ghost")

	assert.Equal(t, http.StatusNotFound, response.Code)
	errorResponse, err := controllertest.GetErrorResponse(response)
	require.NoError(t, err)
	assert.Equal(t, "missing", errorResponse.Type)
}

func Test_SavePipeline_LockedByOther_Returns409(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockStore(ctrl)

	services := testServices(t, newFakeResources(), store)
	_, err := services.Locks.Acquire("orders-api", "alice", false)
	require.NoError(t, err)

	tu := controllertest.NewTestUtils(services, NewPipelineController())
	response := <-tu.ExecuteRequestAs("POST", "/api/v1/pipelines/orders-api", "bob", validRequest("orders-api"))

	assert.Equal(t, http.StatusConflict, response.Code)
}

func Test_DeletePipeline_NothingDeleted_Returns404(t *testing.T) {
	ctrl := gomock.NewController(t)
	fake := newFakeResources()
	fake.deleteErr = notFound("resource", "ghost")
	store := mock.NewMockStore(ctrl)
	store.EXPECT().GetPipeline(gomock.Any(), "ghost").Return(nil, metadata.ErrRecordNotFound)
	store.EXPECT().DeletePipeline(gomock.Any(), "ghost").Return(false, nil)

	tu := setupTest(t, fake, store)
	response := <-tu.ExecuteRequest("DELETE", "/api/v1/pipelines/ghost")

	assert.Equal(t, http.StatusNotFound, response.Code)
	var result pipelinemodels.DeletionResult
	require.NoError(t, controllertest.GetResponseBody(response, &result))
	assert.False(t, result.Success)
}

func Test_GetManifest_ReturnsYaml(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockStore(ctrl)
	store.EXPECT().GetPipeline(gomock.Any(), "orders-api").Return(&metadata.Record{Name: "orders-api"}, nil)

	tu := setupTest(t, newFakeResources(), store)
	response := <-tu.ExecuteRequest("GET", "/api/v1/pipelines/orders-api/manifest")

	assert.Equal(t, http.StatusOK, response.Code)
	assert.Contains(t, response.Header().Get("Content-Type"), "yaml")
	assert.Contains(t, response.Body.String(), "kind: Deployment")
}
