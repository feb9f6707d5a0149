package models

import (
	"net/http"

	apihttp "github.com/equinor/pipeline-builder-api/http"
	"github.com/rs/zerolog"
)

// Controller Pattern of a rest controller
type Controller interface {
	GetRoutes() Routes
}

// DefaultController Default implementation
type DefaultController struct {
}

// ErrorResponse Marshals error for user requester
func (c *DefaultController) ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if werr := apihttp.ErrorResponse(w, r, err); werr != nil {
		zerolog.Ctx(r.Context()).Error().Err(werr).Msgf("%s %s: failed to write response", r.Method, r.URL.Path)
	}
}

// JSONResponse Marshals response with header
func (c *DefaultController) JSONResponse(w http.ResponseWriter, r *http.Request, result any) {
	if werr := apihttp.JSONResponse(w, r, result); werr != nil {
		zerolog.Ctx(r.Context()).Error().Err(werr).Msgf("%s %s: failed to write response", r.Method, r.URL.Path)
	}
}

// JSONResponseWithCode Marshals response with an explicit status code
func (c *DefaultController) JSONResponseWithCode(w http.ResponseWriter, r *http.Request, code int, result any) {
	if werr := apihttp.JSONResponseWithCode(w, r, code, result); werr != nil {
		zerolog.Ctx(r.Context()).Error().Err(werr).Msgf("%s %s: failed to write response", r.Method, r.URL.Path)
	}
}

// StringResponse Writes textual response data. I.e. rendered manifests
func (c *DefaultController) StringResponse(w http.ResponseWriter, r *http.Request, contentType, result string) {
	if werr := apihttp.StringResponse(w, r, contentType, result); werr != nil {
		zerolog.Ctx(r.Context()).Error().Err(werr).Msgf("%s %s: failed to write response", r.Method, r.URL.Path)
	}
}
