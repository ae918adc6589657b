package api

import (
	"net/http"
	"time"

	"cmdvrp/internal/buildinfo"
)

// DebugJSON serves /debug/vars: build stamps and the non-secret settings.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	c := s.Config
	info := map[string]any{
		"build":  buildinfo.Info(),
		"time":   time.Now().UTC().Format(time.RFC3339),
		"system": s.Runs.System,
		"config": map[string]any{
			"port":               c.Port,
			"rateRps":            c.RateRPS,
			"rateBurst":          c.RateBurst,
			"webhookMaxAttempts": c.WebhookMaxAttempts,
			"instanceDir":        c.InstanceDir,
			"solver":             c.Solver,
			"hasDatabaseUrl":     c.DatabaseURL != "",
			"hasRedisUrl":        c.RedisURL != "",
		},
	}
	writeJSON(w, http.StatusOK, info)
}
