package pool

import "time"

type Config struct {
	MaxTenantPools    int           `env:"MAX_TENANT_POOLS" envDefault:"50"`              // MaxTenantPools caps the number of live pools across all tenants and kinds.
	PoolSize          int32         `env:"TENANT_POOL_SIZE" envDefault:"5"`               // PoolSize is the steady-state connection count per tenant pool.
	PoolMaxOverflow   int32         `env:"TENANT_POOL_MAX_OVERFLOW" envDefault:"10"`      // PoolMaxOverflow is the burst headroom on top of PoolSize.
	InactivityTimeout time.Duration `env:"POOL_INACTIVITY_TIMEOUT" envDefault:"10m"`      // InactivityTimeout is how long a pool may sit unused before the sweep evicts it.
	AcquireTimeout    time.Duration `env:"TENANT_POOL_ACQUIRE_TIMEOUT" envDefault:"5s"`   // AcquireTimeout bounds the wait for a connection from a saturated pool.
	SweepInterval     time.Duration `env:"POOL_SWEEP_INTERVAL" envDefault:"1m"`           // SweepInterval is the cadence of the idle-pool sweep.
	PoolingEnabled    bool          `env:"ENABLE_CONNECTION_POOLING" envDefault:"true"`   // PoolingEnabled switches between pooled and direct connections.
}

func (c Config) withDefaults() Config {
	if c.MaxTenantPools <= 0 {
		c.MaxTenantPools = 50
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 5
	}
	if c.PoolMaxOverflow < 0 {
		c.PoolMaxOverflow = 0
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = 10 * time.Minute
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = 5 * time.Second
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	return c
}
