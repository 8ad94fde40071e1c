// Package badger persiste el estado de los actores de reservas en BadgerDB embebido
// (STATE_BACKEND=badger): un proceso único sin PostgreSQL ni Redis para el estado.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Open abre la base en path, o en memoria si path está vacío (tests).
func Open(path string, log zerolog.Logger) (*badger.DB, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("crear directorio %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(&badgerLogger{log: log.With().Str("component", "badger").Logger()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("abrir badger: %w", err)
	}
	return db, nil
}

// badgerLogger adapta zerolog a badger.Logger. Info y Debug se bajan un nivel: badger es verboso.
type badgerLogger struct {
	log zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}
func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}
func (l *badgerLogger) Infof(format string, args ...interface{}) { l.log.Debug().Msgf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace().Msgf(format, args...)
}

// RunGC ejecuta la recolección del value log cada interval hasta que ctx termine.
func RunGC(ctx context.Context, db *badger.DB, interval time.Duration, log zerolog.Logger) {
	if db.Opts().InMemory {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				err := db.RunValueLogGC(0.5)
				if err == nil {
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
					log.Warn().Err(err).Msg("gc de badger fallido")
				}
				break
			}
		}
	}
}
