package store

import (
	"fmt"

	"github.com/hpungsan/lcsync/internal/config"
	"github.com/hpungsan/lcsync/internal/db"
)

// Open returns the snapshot store selected by cfg.SnapshotBackend.
// baseDir holds the sqlite database for the default backend.
func Open(cfg *config.Config, baseDir string) (SnapshotStore, error) {
	switch cfg.SnapshotBackend {
	case "", config.BackendSQLite:
		s, err := OpenSQLite(baseDir)
		if err != nil {
			return nil, err
		}
		db.ConfigurePool(s.DB(), cfg)
		return s, nil
	case config.BackendRedis:
		return NewRedisFromConfig(RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
	case config.BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}
}
