package cors

import (
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func NewMiddleware(allowedOrigins []string) *cors.Cors {
	corsOptions := cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		MaxAge:           600,
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization", "X-User-Id"},
		AllowedMethods:   []string{"GET", "PUT", "POST", "OPTIONS", "DELETE", "PATCH"},
	}

	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		// debugging mode
		corsOptions.Debug = true
		corsLogger := log.Logger.With().Str("pkg", "cors-middleware").Logger()
		corsOptions.Logger = &corsLogger
		corsOptions.AllowedHeaders = append(corsOptions.AllowedHeaders, "X-Requested-With")
	}

	return cors.New(corsOptions)
}
