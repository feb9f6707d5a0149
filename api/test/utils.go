// Package test issues httptest requests through the real router so
// controller tests exercise routing, middleware and response writing.
package test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/equinor/pipeline-builder-api/api/router"
	"github.com/equinor/pipeline-builder-api/models"
)

// Utils Instance variables
type Utils struct {
	services    models.Services
	controllers []models.Controller
}

// NewTestUtils Constructor
func NewTestUtils(services models.Services, controllers ...models.Controller) Utils {
	return Utils{
		services,
		controllers,
	}
}

// ExecuteRequest Helper method to issue a http request
func (tu *Utils) ExecuteRequest(method, endpoint string) <-chan *httptest.ResponseRecorder {
	return tu.ExecuteRequestWithParameters(method, endpoint, nil)
}

// ExecuteRequestWithParameters Helper method to issue a http request with payload
func (tu *Utils) ExecuteRequestWithParameters(method, endpoint string, parameters any) <-chan *httptest.ResponseRecorder {
	return tu.ExecuteRequestAs(method, endpoint, "", parameters)
}

// ExecuteRequestAs Helper method to issue a http request with payload on behalf of a user
func (tu *Utils) ExecuteRequestAs(method, endpoint, userId string, parameters any) <-chan *httptest.ResponseRecorder {
	var reader io.Reader

	if parameters != nil {
		payload, _ := json.Marshal(parameters)
		reader = bytes.NewReader(payload)
	}

	req, _ := http.NewRequest(method, endpoint, reader)
	req.Header.Add("Accept", "application/json")
	if userId != "" {
		req.Header.Add("X-User-Id", userId)
	}

	response := make(chan *httptest.ResponseRecorder)
	go func() {
		rr := httptest.NewRecorder()
		router.NewAPIHandler([]string{"*"}, tu.services, tu.controllers...).ServeHTTP(rr, req)
		response <- rr
		close(response)
	}()

	return response
}

// GetErrorResponse Gets error response
func GetErrorResponse(response *httptest.ResponseRecorder) (*ErrorBody, error) {
	errorResponse := &ErrorBody{}
	if err := GetResponseBody(response, errorResponse); err != nil {
		return nil, err
	}

	return errorResponse, nil
}

// ErrorBody is the wire shape of an API error.
type ErrorBody struct {
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Err     string          `json:"error,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

// GetResponseBody Gets response payload as type
func GetResponseBody(response *httptest.ResponseRecorder, target any) error {
	body, _ := io.ReadAll(response.Body)

	return json.Unmarshal(body, target)
}
