// Package backend opens the persistence port selected by configuration.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/koyif/securevault/internal/persistence"
	"github.com/koyif/securevault/internal/persistence/postgres"
	"github.com/koyif/securevault/internal/persistence/sqlite"
)

// Supported drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Drivers lists the supported driver names.
func Drivers() []string {
	return []string{DriverFile, DriverSQLite, DriverPostgres, DriverMemory}
}

// Config selects and parameterises a backend.
type Config struct {
	Driver string
	// Path is the directory used by the file driver.
	Path string
	// DBPath is the database file used by the sqlite driver.
	DBPath string
	// DSN is the connection string used by the postgres driver.
	DSN string
}

// Open returns the port for cfg.Driver.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (persistence.Port, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("driver", cfg.Driver))

	switch cfg.Driver {
	case DriverFile, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("storage path is required for the %s driver", DriverFile)
		}
		port, err := persistence.NewFilePort(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return port, nil

	case DriverSQLite:
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("database path is required for the %s driver", DriverSQLite)
		}
		port, err := sqlite.Open(ctx, cfg.DBPath, logger)
		if err != nil {
			return nil, err
		}
		return port, nil

	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("dsn is required for the %s driver", DriverPostgres)
		}
		port, err := postgres.Open(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, err
		}
		return port, nil

	case DriverMemory:
		return persistence.NewMemory(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q (expected one of: file, sqlite, postgres, memory)", cfg.Driver)
	}
}
