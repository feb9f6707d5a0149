package apihttp

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// JSONResponse Marshals response with header
func JSONResponse(w http.ResponseWriter, r *http.Request, result any) error {
	return JSONResponseWithCode(w, r, http.StatusOK, result)
}

// JSONResponseWithCode marshals result and writes it with the given status.
// Batch endpoints use this for 207 Multi-Status.
func JSONResponseWithCode(w http.ResponseWriter, r *http.Request, code int, result any) error {
	body, err := json.Marshal(result)
	if err != nil {
		return ErrorResponse(w, r, err)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, err = w.Write(body)
	return err
}

// ErrorResponse Marshals error
func ErrorResponse(w http.ResponseWriter, r *http.Request, apiError error) error {
	outErr := AsAPIError(apiError)
	zerolog.Ctx(r.Context()).Error().Err(outErr.Err).Msg(outErr.Message)
	return writeErrorWithCode(w, StatusCode(outErr), outErr)
}

func writeErrorWithCode(w http.ResponseWriter, code int, err *Error) error {
	body, encodeErr := json.Marshal(err)
	if encodeErr != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, werr := fmt.Fprintf(w, "Error encoding error response: %s\n\nOriginal error: %s", encodeErr.Error(), err.Error())
		return werr
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, werr := w.Write(body)
	return werr
}

// StringResponse Used for textual response data. I.e. rendered manifests
func StringResponse(w http.ResponseWriter, r *http.Request, contentType, result string) error {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte(result))
	return err
}
