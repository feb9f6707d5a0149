package locks

import (
	"net/http"
	"testing"
	"time"

	controllertest "github.com/equinor/pipeline-builder-api/api/test"
	"github.com/equinor/pipeline-builder-api/internal/locks"
	"github.com/equinor/pipeline-builder-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTest(t *testing.T) (*locks.Manager, controllertest.Utils) {
	t.Helper()
	manager := locks.New(30 * time.Minute)
	services := models.Services{Locks: manager}
	return manager, controllertest.NewTestUtils(services, NewLockController())
}

func Test_AcquireLock_ReturnsHolder(t *testing.T) {
	_, tu := setupTest(t)

	response := <-tu.ExecuteRequestAs("POST", "/api/v1/pipelines/orders-api/lock", "alice", nil)
	assert.Equal(t, http.StatusOK, response.Code)

	var body lockResponse
	require.NoError(t, controllertest.GetResponseBody(response, &body))
	assert.True(t, body.Locked)
	require.NotNil(t, body.Lock)
	assert.Equal(t, "alice", body.Lock.Holder)
}

func Test_AcquireLock_GeneratesHolderWhenAbsent(t *testing.T) {
	_, tu := setupTest(t)

	response := <-tu.ExecuteRequest("POST", "/api/v1/pipelines/orders-api/lock")
	assert.Equal(t, http.StatusOK, response.Code)

	var body lockResponse
	require.NoError(t, controllertest.GetResponseBody(response, &body))
	require.NotNil(t, body.Lock)
	assert.NotEmpty(t, body.Lock.Holder)
}

func Test_AcquireLock_HeldByOther_Conflicts(t *testing.T) {
	manager, tu := setupTest(t)
	_, err := manager.Acquire("orders-api", "alice", false)
	require.NoError(t, err)

	response := <-tu.ExecuteRequestAs("POST", "/api/v1/pipelines/orders-api/lock", "bob", nil)
	assert.Equal(t, http.StatusConflict, response.Code)

	errorResponse, err := controllertest.GetErrorResponse(response)
	require.NoError(t, err)
	assert.Equal(t, "conflict", errorResponse.Type)
	assert.Contains(t, string(errorResponse.Details), "alice")
}

func Test_AcquireLock_Force_Evicts(t *testing.T) {
	manager, tu := setupTest(t)
	_, err := manager.Acquire("orders-api", "alice", false)
	require.NoError(t, err)

	response := <-tu.ExecuteRequestAs("POST", "/api/v1/pipelines/orders-api/lock?force=true", "bob", nil)
	assert.Equal(t, http.StatusOK, response.Code)

	info, locked := manager.Status("orders-api")
	require.True(t, locked)
	assert.Equal(t, "bob", info.Holder)
}

func Test_RefreshLock_Unlocked_NotFound(t *testing.T) {
	_, tu := setupTest(t)

	response := <-tu.ExecuteRequestAs("PUT", "/api/v1/pipelines/orders-api/lock", "alice", nil)
	assert.Equal(t, http.StatusNotFound, response.Code)
}

func Test_RefreshLock_ForeignHolder_Forbidden(t *testing.T) {
	manager, tu := setupTest(t)
	_, err := manager.Acquire("orders-api", "alice", false)
	require.NoError(t, err)

	response := <-tu.ExecuteRequestAs("PUT", "/api/v1/pipelines/orders-api/lock", "bob", nil)
	assert.Equal(t, http.StatusForbidden, response.Code)
}

func Test_ReleaseLock_ForeignHolder_Forbidden(t *testing.T) {
	manager, tu := setupTest(t)
	_, err := manager.Acquire("orders-api", "alice", false)
	require.NoError(t, err)

	response := <-tu.ExecuteRequestAs("DELETE", "/api/v1/pipelines/orders-api/lock", "bob", nil)
	assert.Equal(t, http.StatusForbidden, response.Code)

	_, locked := manager.Status("orders-api")
	assert.True(t, locked)
}

func Test_ReleaseLock_Holder_Succeeds(t *testing.T) {
	manager, tu := setupTest(t)
	_, err := manager.Acquire("orders-api", "alice", false)
	require.NoError(t, err)

	response := <-tu.ExecuteRequestAs("DELETE", "/api/v1/pipelines/orders-api/lock", "alice", nil)
	assert.Equal(t, http.StatusOK, response.Code)

	_, locked := manager.Status("orders-api")
	assert.False(t, locked)
}

func Test_ReleaseLock_Unlocked_IsNoOp(t *testing.T) {
	_, tu := setupTest(t)

	response := <-tu.ExecuteRequestAs("DELETE", "/api/v1/pipelines/orders-api/lock", "alice", nil)
	assert.Equal(t, http.StatusOK, response.Code)
}

func Test_GetLock_ReportsState(t *testing.T) {
	manager, tu := setupTest(t)

	response := <-tu.ExecuteRequest("GET", "/api/v1/pipelines/orders-api/lock")
	assert.Equal(t, http.StatusOK, response.Code)
	var body lockResponse
	require.NoError(t, controllertest.GetResponseBody(response, &body))
	assert.False(t, body.Locked)

	_, err := manager.Acquire("orders-api", "alice", false)
	require.NoError(t, err)

	response = <-tu.ExecuteRequest("GET", "/api/v1/pipelines/orders-api/lock")
	require.NoError(t, controllertest.GetResponseBody(response, &body))
	assert.True(t, body.Locked)
	assert.Equal(t, "alice", body.Lock.Holder)
}

func Test_GetAllLocks(t *testing.T) {
	manager, tu := setupTest(t)
	_, err := manager.Acquire("svc-a", "alice", false)
	require.NoError(t, err)
	_, err = manager.Acquire("svc-b", "bob", false)
	require.NoError(t, err)

	response := <-tu.ExecuteRequest("GET", "/api/v1/locks")
	assert.Equal(t, http.StatusOK, response.Code)

	var all map[string]locks.Info
	require.NoError(t, controllertest.GetResponseBody(response, &all))
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all["svc-a"].Holder)
	assert.Equal(t, "bob", all["svc-b"].Holder)
}
