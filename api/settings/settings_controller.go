package settings

import (
	"encoding/json"
	"net/http"

	apihttp "github.com/equinor/pipeline-builder-api/http"
	"github.com/equinor/pipeline-builder-api/internal/metadata"
	"github.com/equinor/pipeline-builder-api/models"
)

const (
	settingsPath       = "/settings"
	envSuggestionsPath = "/env-suggestions"
)

type settingsController struct {
	*models.DefaultController
}

// NewSettingsController Constructor
func NewSettingsController() models.Controller {
	return &settingsController{}
}

// GetRoutes List the supported routes of this controller
func (sc *settingsController) GetRoutes() models.Routes {
	routes := models.Routes{
		models.Route{
			Path:        settingsPath,
			Method:      "GET",
			HandlerFunc: sc.GetPipelineSettings,
		},
		models.Route{
			Path:        settingsPath,
			Method:      "POST",
			HandlerFunc: sc.SavePipelineSettings,
		},
		models.Route{
			Path:        envSuggestionsPath,
			Method:      "GET",
			HandlerFunc: sc.GetEnvSuggestions,
		},
		models.Route{
			Path:        envSuggestionsPath,
			Method:      "POST",
			HandlerFunc: sc.SaveEnvSuggestions,
		},
	}

	return routes
}

// GetPipelineSettings returns the provisioning defaults
func (sc *settingsController) GetPipelineSettings(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /settings settings getPipelineSettings
	// ---
	// summary: Get the provisioning default settings
	// responses:
	//   "200":
	//     description: "Successful operation"
	sc.getSettings(services, w, r, metadata.SettingsKindPipeline)
}

// SavePipelineSettings stores the provisioning defaults
func (sc *settingsController) SavePipelineSettings(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /settings settings savePipelineSettings
	// ---
	// summary: Store the provisioning default settings
	// responses:
	//   "200":
	//     description: "Successful operation"
	//   "400":
	//     description: "Not a JSON object"
	sc.saveSettings(services, w, r, metadata.SettingsKindPipeline)
}

// GetEnvSuggestions returns the environment variable suggestions
func (sc *settingsController) GetEnvSuggestions(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /env-suggestions settings getEnvSuggestions
	// ---
	// summary: Get the environment variable suggestions
	// responses:
	//   "200":
	//     description: "Successful operation"
	sc.getSettings(services, w, r, metadata.SettingsKindEnvSuggestions)
}

// SaveEnvSuggestions stores the environment variable suggestions
func (sc *settingsController) SaveEnvSuggestions(services models.Services, w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /env-suggestions settings saveEnvSuggestions
	// ---
	// summary: Store the environment variable suggestions
	// responses:
	//   "200":
	//     description: "Successful operation"
	//   "400":
	//     description: "Not a JSON object"
	sc.saveSettings(services, w, r, metadata.SettingsKindEnvSuggestions)
}

func (sc *settingsController) getSettings(services models.Services, w http.ResponseWriter, r *http.Request, kind string) {
	handler := Init(services)
	merged, err := handler.GetSettings(r.Context(), kind)
	if err != nil {
		sc.ErrorResponse(w, r, err)
		return
	}

	sc.JSONResponse(w, r, merged)
}

func (sc *settingsController) saveSettings(services models.Services, w http.ResponseWriter, r *http.Request, kind string) {
	var blob map[string]any
	if err := json.NewDecoder(r.Body).Decode(&blob); err != nil {
		sc.ErrorResponse(w, r, apihttp.ValidationError("Settings", "Request body must be a JSON object"))
		return
	}

	handler := Init(services)
	if err := handler.SaveSettings(r.Context(), kind, blob); err != nil {
		sc.ErrorResponse(w, r, err)
		return
	}

	sc.JSONResponse(w, r, blob)
}
