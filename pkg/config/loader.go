// Package config loads typed configuration structs from environment
// variables. Each struct type is parsed at most once per process; later
// calls return the cached value so every package sees the same settings.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrNilPointer is returned when Load receives a nil destination.
	ErrNilPointer = errors.New("config: nil pointer provided")
	// ErrParsingConfig wraps env parsing failures.
	ErrParsingConfig = errors.New("config: failed to parse environment variables")
)

var (
	mu     sync.Mutex
	loaded = make(map[string]any)

	dotenvOnce sync.Once
)

// Load populates cfg from environment variables declared via `env` struct
// tags. A .env file, if present, is loaded once before the first parse.
//
//	type PoolConfig struct {
//		MaxTenantPools int `env:"MAX_TENANT_POOLS" envDefault:"50"`
//	}
//
//	var cfg PoolConfig
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		// The .env file is optional; absence is not an error.
		_ = godotenv.Load()
	})

	key := typeName[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := loaded[key]; ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	loaded[key] = *cfg
	return nil
}

// MustLoad is Load that panics on failure. Use at startup for
// configuration without which the process cannot run.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load %s: %v", typeName[T](), err))
	}
}

func typeName[T any]() string {
	var zero T
	if t := reflect.TypeOf(zero); t != nil {
		return t.String()
	}
	return fmt.Sprintf("%T", *new(T))
}
