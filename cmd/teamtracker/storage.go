package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rustwatch/teamtracker/internal/config"
	"github.com/rustwatch/teamtracker/internal/database"
	"github.com/rustwatch/teamtracker/internal/storage"
	dbstorage "github.com/rustwatch/teamtracker/internal/storage/db"
	"github.com/rustwatch/teamtracker/internal/storage/memory"
)

// createStorageBackend builds the configured storage backend. The database
// manager is non-nil only for the db backend and must be closed by the
// caller.
func createStorageBackend(logger zerolog.Logger) (storage.Backend, *database.Manager, error) {
	storageCfg := config.GetStorageConfig()
	switch storageCfg.Type {
	case "db":
		manager := database.NewManager(logger)
		if err := manager.Connect(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect database: %w", err)
		}
		logger.Info().Bool("sqliteFallback", manager.ShouldSaveLocal).
			Msg("Database storage backend initialized")
		return dbstorage.New(manager, logger), manager, nil

	case "memory", "":
		logger.Info().Msg("Memory storage backend initialized")
		return memory.New(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
