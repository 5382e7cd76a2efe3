package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/pisakart/pisakart-backend/pkg/config"
)

// CORS returns middleware applying the configured allowed-origin policy. The
// storefront and the back-office admin page are served from other origins.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}).Handler
}
