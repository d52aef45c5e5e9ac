package httpapi

import (
	"database/sql"
	"sync/atomic"

	"leadgen-engine/internal/config"
	"leadgen-engine/internal/events"
	"leadgen-engine/internal/orchestrator"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub

	Orch *orchestrator.Orchestrator

	// Atomic store of config.Config so PUT /config takes effect
	// without a restart.
	CfgVal *atomic.Value

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
}
