package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type dbStatus struct {
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

func (app *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(app.startedAt).Round(time.Second)

	storeStatus := dbStatus{Kind: app.Config.Store.Kind, Status: "online"}

	if app.pg != nil {
		if err := app.pg.PGx.Ping(r.Context()); err != nil {
			storeStatus.Status = fmt.Errorf("err: %w", err).Error()
		}
	}

	statusData := map[string]any{
		"status":      "online",
		"time":        time.Now(),
		"uptime":      uptime.String(),
		"gitHash":     gitHash(),
		"environment": app.Config.Environment,
		"middleware":  app.Middleware.Config(),
		"resolver":    app.Config.Resolver.Kind,
		"store":       storeStatus,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	_ = json.NewEncoder(w).Encode(statusData)
}

func gitHash() string {
	hash := readBuildInfo().revision
	if hash == "" {
		return "unknown"
	}

	return hash
}
