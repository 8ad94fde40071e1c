package reservation

import "time"

// Valores por defecto del ledger de reservas.
const (
	DefaultTTL             = 15 * time.Minute // cubre checkout + captura del pago
	DefaultSyncInterval    = 30 * time.Second // antigüedad máxima del stock en caché para admitir reservas
	DefaultCleanupInterval = 60 * time.Second
	DefaultIdleEvict       = 10 * time.Minute
	DefaultLoadTimeout     = 10 * time.Second
)

// Options parámetros de los actores y del gateway.
type Options struct {
	TTL             time.Duration
	SyncInterval    time.Duration
	CleanupInterval time.Duration
	// IdleEvict tiempo sin uso tras el cual un actor sin reservas se descarga de memoria. 0 = nunca.
	IdleEvict   time.Duration
	LoadTimeout time.Duration
	// Clock permite inyectar el reloj en tests. nil = time.Now.
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.SyncInterval <= 0 {
		o.SyncInterval = DefaultSyncInterval
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = DefaultCleanupInterval
	}
	if o.IdleEvict < 0 {
		o.IdleEvict = 0
	}
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = DefaultLoadTimeout
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}
