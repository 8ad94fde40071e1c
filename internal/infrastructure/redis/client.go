// Package redis implementa el ledger de stock y el store de estado de actores sobre Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/Reservas-api/pkg/config"
)

const keyPrefix = "reservas:"

// NewClient crea el cliente y verifica la conexión con PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

func stockKey(productID, warehouseID string) string {
	return keyPrefix + "stock:{" + productID + ":" + warehouseID + "}"
}

func stateKey(productID, warehouseID string) string {
	return keyPrefix + "actor:{" + productID + ":" + warehouseID + "}"
}
