// seed_stock carga cantidades en el ledger de stock desde un CSV producto,bodega,cantidad.
//
// Uso: go run ./cmd/seed_stock [-latin1] [-list] [ruta/stock.csv]
// Por defecto lee stock.csv del directorio actual. El backend sale de LEDGER_BACKEND (postgres o redis).
// Con -latin1 el archivo se decodifica como ISO-8859-1 (exportaciones de Excel).
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Reservas-api/internal/domain/entity"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
	"github.com/jhoicas/Reservas-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/Reservas-api/internal/infrastructure/redis"
	"github.com/jhoicas/Reservas-api/pkg/config"
	"github.com/jhoicas/Reservas-api/pkg/logger"
)

func main() {
	latin1 := flag.Bool("latin1", false, "decodificar el CSV como ISO-8859-1")
	list := flag.Bool("list", false, "listar el ledger después de cargar (solo postgres)")
	flag.Parse()

	csvPath := "stock.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed_stock"})

	f, err := os.Open(csvPath)
	if err != nil {
		log.Fatal().Err(err).Str("file", csvPath).Msg("abrir CSV")
	}
	defer f.Close()

	var r io.Reader = f
	if *latin1 {
		r = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	}
	records, err := parseStock(r)
	if err != nil {
		log.Fatal().Err(err).Msg("leer CSV")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch cfg.Reservation.LedgerBackend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("esquema")
		}
		err = postgres.NewTxRunner(pool).RunLedger(ctx, func(ledger repository.StockLedger) error {
			return load(ctx, ledger, records)
		})
		if err != nil {
			log.Fatal().Err(err).Msg("carga de stock")
		}
		if *list {
			rows, err := postgres.NewStockLedger(pool).List(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("listar ledger")
			}
			for _, s := range rows {
				fmt.Printf("%s\t%s\t%d\t%s\n", s.ProductID, s.WarehouseID, s.Quantity, s.UpdatedAt.Format(time.RFC3339))
			}
		}
	case config.BackendRedis:
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		if err := load(ctx, infraredis.NewStockLedger(rdb), records); err != nil {
			log.Fatal().Err(err).Msg("carga de stock")
		}
	default:
		log.Fatal().Str("backend", cfg.Reservation.LedgerBackend).Msg("LEDGER_BACKEND debe ser postgres o redis")
	}

	log.Info().Int("rows", len(records)).Str("backend", cfg.Reservation.LedgerBackend).Msg("stock cargado")
}

func load(ctx context.Context, ledger repository.StockLedger, records []entity.StockRecord) error {
	for _, s := range records {
		if err := ledger.SetQuantity(ctx, s.ProductID, s.WarehouseID, s.Quantity); err != nil {
			return fmt.Errorf("%s/%s: %w", s.ProductID, s.WarehouseID, err)
		}
	}
	return nil
}

// parseStock lee filas producto,bodega,cantidad. Acepta encabezado y separador ';'.
func parseStock(r io.Reader) ([]entity.StockRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []entity.StockRecord
	line := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 1 && strings.Contains(row[0], ";") {
			row = strings.Split(row[0], ";")
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("línea %d: se esperaban 3 columnas", line)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			if line == 1 {
				continue // encabezado
			}
			return nil, fmt.Errorf("línea %d: cantidad %q inválida", line, row[2])
		}
		if qty < 0 {
			return nil, fmt.Errorf("línea %d: cantidad negativa", line)
		}
		productID, warehouseID := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if productID == "" || warehouseID == "" {
			return nil, fmt.Errorf("línea %d: producto y bodega son obligatorios", line)
		}
		out = append(out, entity.StockRecord{ProductID: productID, WarehouseID: warehouseID, Quantity: qty})
	}
	return out, nil
}
