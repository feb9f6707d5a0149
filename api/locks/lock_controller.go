// Package locks exposes the editing lock of a pipeline as an HTTP
// sub-resource.
package locks

import (
	"encoding/json"
	"errors"
	"net/http"

	apihttp "github.com/equinor/pipeline-builder-api/http"
	"github.com/equinor/pipeline-builder-api/internal/locks"
	"github.com/equinor/pipeline-builder-api/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	rootPath     = "/pipelines/{pipelineName}/lock"
	allLocksPath = "/locks"

	userIdHeader = "X-User-Id"
)

type lockController struct {
	*models.DefaultController
}

// NewLockController Constructor
func NewLockController() models.Controller {
	return &lockController{}
}

// GetRoutes List the supported routes of this controller
func (lc *lockController) GetRoutes() models.Routes {
	routes := models.Routes{
		models.Route{
			Path:        rootPath,
			Method:      "GET",
			HandlerFunc: lc.GetLock,
		},
		models.Route{
			Path:        rootPath,
			Method:      "POST",
			HandlerFunc: lc.AcquireLock,
		},
		models.Route{
			Path:        rootPath,
			Method:      "PUT",
			HandlerFunc: lc.RefreshLock,
		},
		models.Route{
			Path:        rootPath,
			Method:      "DELETE",
			HandlerFunc: lc.ReleaseLock,
		},
		models.Route{
			Path:        allLocksPath,
			Method:      "GET",
			HandlerFunc: lc.GetAllLocks,
		},
	}

	return routes
}

// lockRequest is the optional body of acquire, refresh and release calls.
type lockRequest struct {
	Holder string `json:"holder,omitempty"`
	Force  bool   `json:"force,omitempty"`
}

// lockResponse wraps a lock state with its pipeline name.
// swagger:model lockResponse
type lockResponse struct {
	PipelineName string     `json:"pipelineName"`
	Locked       bool       `json:"locked"`
	Lock         *locks.Info `json:"lock,omitempty"`
}

func readLockRequest(r *http.Request) lockRequest {
	var request lockRequest
	if r.Body != nil {
		// an empty or malformed body simply means no overrides
		_ = json.NewDecoder(r.Body).Decode(&request)
	}
	if request.Holder == "" {
		request.Holder = r.Header.Get(userIdHeader)
	}
	if !request.Force {
		request.Force = r.URL.Query().Get("force") == "true"
	}
	return request
}

func translateLockError(pipelineName string, err error) error {
	var conflict *locks.ConflictError
	if errors.As(err, &conflict) {
		return apihttp.ConflictError("Pipeline "+pipelineName+" is locked by another user", conflict.Info)
	}
	var forbidden *locks.ForbiddenError
	if errors.As(err, &forbidden) {
		return apihttp.ForbiddenError("Lock on " + pipelineName + " is held by " + forbidden.Holder)
	}
	var notLocked *locks.NotLockedError
	if errors.As(err, &notLocked) {
		return apihttp.TypeMissingError("Pipeline "+pipelineName+" is not locked", err)
	}
	return apihttp.UnexpectedError("Lock operation failed", err)
}

// GetLock returns the lock state of a pipeline
func (lc *lockController) GetLock(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /pipelines/{pipelineName}/lock locks getLock
	// ---
	// summary: Get the editing lock state of a pipeline
	// parameters:
	// - name: pipelineName
	//   in: path
	//   type: string
	//   required: true
	// responses:
	//   "200":
	//     description: "Successful operation"
	//     schema:
	//       "$ref": "#/definitions/lockResponse"
	pipelineName := mux.Vars(r)["pipelineName"]

	info, locked := services.Locks.Status(pipelineName)
	response := lockResponse{PipelineName: pipelineName, Locked: locked}
	if locked {
		response.Lock = &info
	}

	lc.JSONResponse(w, r, response)
}

// AcquireLock acquires the editing lock of a pipeline
func (lc *lockController) AcquireLock(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /pipelines/{pipelineName}/lock locks acquireLock
	// ---
	// summary: Acquire the editing lock of a pipeline
	// parameters:
	// - name: pipelineName
	//   in: path
	//   type: string
	//   required: true
	// - name: lock
	//   in: body
	//   schema:
	//     type: object
	//     properties:
	//       holder:
	//         type: string
	//       force:
	//         type: boolean
	// responses:
	//   "200":
	//     description: "Lock acquired"
	//   "409":
	//     description: "Locked by another holder"
	pipelineName := mux.Vars(r)["pipelineName"]
	request := readLockRequest(r)
	if request.Holder == "" {
		request.Holder = uuid.NewString()
	}

	info, err := services.Locks.Acquire(pipelineName, request.Holder, request.Force)
	if err != nil {
		lc.ErrorResponse(w, r, translateLockError(pipelineName, err))
		return
	}

	lc.JSONResponse(w, r, lockResponse{PipelineName: pipelineName, Locked: true, Lock: &info})
}

// RefreshLock records edit activity on a held lock
func (lc *lockController) RefreshLock(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation PUT /pipelines/{pipelineName}/lock locks refreshLock
	// ---
	// summary: Record edit activity on a held lock
	// parameters:
	// - name: pipelineName
	//   in: path
	//   type: string
	//   required: true
	// responses:
	//   "200":
	//     description: "Lock refreshed"
	//   "403":
	//     description: "Held by another holder"
	//   "404":
	//     description: "Not locked"
	pipelineName := mux.Vars(r)["pipelineName"]
	request := readLockRequest(r)

	info, err := services.Locks.Refresh(pipelineName, request.Holder)
	if err != nil {
		lc.ErrorResponse(w, r, translateLockError(pipelineName, err))
		return
	}

	lc.JSONResponse(w, r, lockResponse{PipelineName: pipelineName, Locked: true, Lock: &info})
}

// ReleaseLock releases the editing lock of a pipeline
func (lc *lockController) ReleaseLock(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation DELETE /pipelines/{pipelineName}/lock locks releaseLock
	// ---
	// summary: Release the editing lock of a pipeline
	// parameters:
	// - name: pipelineName
	//   in: path
	//   type: string
	//   required: true
	// responses:
	//   "200":
	//     description: "Lock released or not held"
	//   "403":
	//     description: "Held by another holder"
	pipelineName := mux.Vars(r)["pipelineName"]
	request := readLockRequest(r)

	if err := services.Locks.Release(pipelineName, request.Holder, request.Force); err != nil {
		lc.ErrorResponse(w, r, translateLockError(pipelineName, err))
		return
	}

	lc.JSONResponse(w, r, lockResponse{PipelineName: pipelineName, Locked: false})
}

// GetAllLocks returns every currently held lock
func (lc *lockController) GetAllLocks(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /locks locks getAllLocks
	// ---
	// summary: List every currently held editing lock
	// responses:
	//   "200":
	//     description: "Successful operation"
	lc.JSONResponse(w, r, services.Locks.AllStatuses())
}
