package pipelines

import (
	"encoding/json"
	"net/http"

	pipelinemodels "github.com/equinor/pipeline-builder-api/api/pipelines/models"
	apihttp "github.com/equinor/pipeline-builder-api/http"
	"github.com/equinor/pipeline-builder-api/models"
	"github.com/gorilla/mux"
)

const rootPath = "/pipelines"

type pipelineController struct {
	*models.DefaultController
}

// NewPipelineController Constructor
func NewPipelineController() models.Controller {
	return &pipelineController{}
}

// GetRoutes List the supported routes of this controller
func (pc *pipelineController) GetRoutes() models.Routes {
	routes := models.Routes{
		models.Route{
			Path:        rootPath,
			Method:      "POST",
			HandlerFunc: pc.ProvisionPipelines,
		},
		models.Route{
			Path:        rootPath,
			Method:      "GET",
			HandlerFunc: pc.ListPipelines,
		},
		models.Route{
			Path:        rootPath + "/{pipelineName}",
			Method:      "GET",
			HandlerFunc: pc.GetPipeline,
		},
		models.Route{
			Path:        rootPath + "/{pipelineName}",
			Method:      "POST",
			HandlerFunc: pc.SavePipeline,
		},
		models.Route{
			Path:        rootPath + "/{pipelineName}",
			Method:      "DELETE",
			HandlerFunc: pc.DeletePipeline,
		},
		models.Route{
			Path:        rootPath + "/{pipelineName}/manifest",
			Method:      "GET",
			HandlerFunc: pc.GetManifest,
		},
		models.Route{
			Path:        rootPath + "/{pipelineName}/appsettings",
			Method:      "GET",
			HandlerFunc: pc.GetAppsettings,
		},
	}

	return routes
}

// ProvisionPipelines provisions a batch of pipelines
func (pc *pipelineController) ProvisionPipelines(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /pipelines pipelines provisionPipelines
	// ---
	// summary: Provision a batch of CI/CD pipelines
	// parameters:
	// - name: pipelines
	//   in: body
	//   description: pipelines to provision
	//   required: true
	//   schema:
	//     type: array
	//     items:
	//       "$ref": "#/definitions/pipelineRequest"
	// responses:
	//   "200":
	//     description: "All pipelines created"
	//     schema:
	//       "$ref": "#/definitions/batchResult"
	//   "207":
	//     description: "Some pipelines created"
	//   "400":
	//     description: "No pipeline created"
	var requests []pipelinemodels.PipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&requests); err != nil {
		pc.ErrorResponse(w, r, apihttp.ValidationError("PipelineRequest", "Request body must be a JSON array of pipelines"))
		return
	}
	if len(requests) == 0 {
		pc.ErrorResponse(w, r, apihttp.ValidationError("PipelineRequest", "At least one pipeline is required"))
		return
	}

	handler := Init(services)
	batch := handler.ProvisionBatch(r.Context(), requests)

	switch succeeded := batch.Succeeded(); {
	case succeeded == 0:
		pc.JSONResponseWithCode(w, r, http.StatusBadRequest, batch)
	case succeeded < len(batch.Results):
		pc.JSONResponseWithCode(w, r, http.StatusMultiStatus, batch)
	default:
		pc.JSONResponse(w, r, batch)
	}
}

// ListPipelines lists all managed pipelines with their lock state
func (pc *pipelineController) ListPipelines(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /pipelines pipelines listPipelines
	// ---
	// summary: List all managed pipelines
	// responses:
	//   "200":
	//     description: "Successful operation"
	//     schema:
	//       type: array
	//       items:
	//         "$ref": "#/definitions/pipelineSummary"
	handler := Init(services)
	summaries, err := handler.ListPipelines(r.Context())
	if err != nil {
		pc.ErrorResponse(w, r, err)
		return
	}

	pc.JSONResponse(w, r, summaries)
}

// GetPipeline returns the stored configuration of one pipeline
func (pc *pipelineController) GetPipeline(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /pipelines/{pipelineName} pipelines getPipeline
	// ---
	// summary: Get the stored configuration of a pipeline
	// parameters:
	// - name: pipelineName
	//   in: path
	//   type: string
	//   required: true
	// responses:
	//   "200":
	//     description: "Successful operation"
	//   "404":
	//     description: "Not found"
	pipelineName := mux.Vars(r)["pipelineName"]

	handler := Init(services)
	record, err := handler.GetPipeline(r.Context(), pipelineName)
	if err != nil {
		pc.ErrorResponse(w, r, err)
		return
	}

	pc.JSONResponse(w, r, record)
}

// SavePipeline updates the stored configuration of a pipeline
func (pc *pipelineController) SavePipeline(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /pipelines/{pipelineName} pipelines savePipeline
	// ---
	// summary: Update the stored configuration of a pipeline
	// parameters:
	// - name: pipelineName
	//   in: path
	//   type: string
	//   required: true
	// - name: pipeline
	//   in: body
	//   required: true
	//   schema:
	//     "$ref": "#/definitions/pipelineRequest"
	// responses:
	//   "200":
	//     description: "Successful operation"
	//   "400":
	//     description: "Invalid configuration"
	//   "404":
	//     description: "Not found"
	//   "409":
	//     description: "Locked by another user"
	pipelineName := mux.Vars(r)["pipelineName"]

	var request pipelinemodels.PipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		pc.ErrorResponse(w, r, apihttp.ValidationError("PipelineRequest", "Request body must be a JSON pipeline configuration"))
		return
	}
	request.PipelineName = pipelineName

	handler := Init(services)
	record, err := handler.SavePipeline(r.Context(), pipelineName, r.Header.Get("X-User-Id"), request)
	if err != nil {
		pc.ErrorResponse(w, r, err)
		return
	}

	pc.JSONResponse(w, r, record)
}

// DeletePipeline tears down a pipeline and everything provisioned with it
func (pc *pipelineController) DeletePipeline(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation DELETE /pipelines/{pipelineName} pipelines deletePipeline
	// ---
	// summary: Delete a pipeline and its resources
	// parameters:
	// - name: pipelineName
	//   in: path
	//   type: string
	//   required: true
	// responses:
	//   "200":
	//     description: "At least one resource deleted"
	//     schema:
	//       "$ref": "#/definitions/deletionResult"
	//   "404":
	//     description: "Nothing to delete"
	pipelineName := mux.Vars(r)["pipelineName"]

	handler := Init(services)
	result := handler.DeleteResources(r.Context(), pipelineName)
	if !result.Success {
		pc.JSONResponseWithCode(w, r, http.StatusNotFound, result)
		return
	}

	pc.JSONResponse(w, r, result)
}

// GetManifest renders the Kubernetes manifests of a pipeline
func (pc *pipelineController) GetManifest(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /pipelines/{pipelineName}/manifest pipelines getManifest
	// ---
	// summary: Render the Kubernetes manifests of a pipeline
	// parameters:
	// - name: pipelineName
	//   in: path
	//   type: string
	//   required: true
	// responses:
	//   "200":
	//     description: "Successful operation"
	//   "404":
	//     description: "Not found"
	pipelineName := mux.Vars(r)["pipelineName"]

	handler := Init(services)
	rendered, err := handler.RenderManifests(r.Context(), pipelineName)
	if err != nil {
		pc.ErrorResponse(w, r, err)
		return
	}

	pc.StringResponse(w, r, "application/yaml; charset=utf-8", rendered)
}

// GetAppsettings renders the application settings file of a pipeline
func (pc *pipelineController) GetAppsettings(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /pipelines/{pipelineName}/appsettings pipelines getAppsettings
	// ---
	// summary: Render the application settings file of a pipeline
	// parameters:
	// - name: pipelineName
	//   in: path
	//   type: string
	//   required: true
	// responses:
	//   "200":
	//     description: "Successful operation"
	//   "404":
	//     description: "Not found"
	pipelineName := mux.Vars(r)["pipelineName"]

	handler := Init(services)
	rendered, err := handler.RenderAppsettings(r.Context(), pipelineName)
	if err != nil {
		pc.ErrorResponse(w, r, err)
		return
	}

	pc.StringResponse(w, r, "application/json; charset=utf-8", rendered)
}
