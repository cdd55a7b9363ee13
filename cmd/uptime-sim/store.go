package main

import (
	"fmt"

	"uptime-sim/internal/config"
	"uptime-sim/internal/store"
)

// newStore opens the save store selected in cfg. The returned cleanup closes
// any connection it holds.
func newStore(cfg config.StoreConfig) (store.KV, func(), error) {
	noop := func() {}
	switch cfg.Kind {
	case config.StoreMemory:
		return store.NewMemoryStore(), noop, nil
	case config.StoreFile:
		fs, err := store.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, noop, err
		}
		return fs, noop, nil
	case config.StoreRedis:
		rs, err := store.NewRedisStore(cfg.RedisURI)
		if err != nil {
			return nil, noop, err
		}
		return rs, func() { _ = rs.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}
