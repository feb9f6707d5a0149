package router

import (
	"net/http"

	"github.com/equinor/pipeline-builder-api/api/middleware/cors"
	"github.com/equinor/pipeline-builder-api/api/middleware/logger"
	"github.com/equinor/pipeline-builder-api/api/middleware/recovery"
	"github.com/equinor/pipeline-builder-api/models"
	"github.com/gorilla/mux"
	"github.com/urfave/negroni/v3"
)

const (
	apiVersionRoute = "/api/v1"
)

// NewAPIHandler Constructor function
func NewAPIHandler(allowedOrigins []string, services models.Services, controllers ...models.Controller) http.Handler {
	serveMux := http.NewServeMux()
	serveMux.Handle("/health/", createHealthHandler())
	serveMux.Handle("/api/", createApiRouter(services, controllers))

	n := negroni.New(
		recovery.NewMiddleware(),
		cors.NewMiddleware(allowedOrigins),
		logger.NewZerologRequestIdMiddleware(),
		logger.NewZerologRequestDetailsMiddleware(),
		logger.NewZerologResponseLoggerMiddleware(),
	)
	n.UseHandler(serveMux)

	return n
}

func createApiRouter(services models.Services, controllers []models.Controller) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	for _, controller := range controllers {
		for _, route := range controller.GetRoutes() {
			path := apiVersionRoute + route.Path
			handlerFunc := route.HandlerFunc
			router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
				handlerFunc(services, w, r)
			}).Methods(route.Method)
		}
	}
	return router
}

func createHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
