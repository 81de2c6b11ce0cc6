package sink

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sanspareilsmyn/transitlens/internal/accessibility"
	"github.com/sanspareilsmyn/transitlens/internal/accumulate"
	"github.com/sanspareilsmyn/transitlens/internal/coverage"
	"github.com/sanspareilsmyn/transitlens/internal/metrics"
	"github.com/sanspareilsmyn/transitlens/internal/solver"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// SQL writes results into one table per output, creating tables on first use.
// Each write is a single transaction.
type SQL struct {
	db      *sqlx.DB
	enc     encoder
	logger  *zap.Logger
	mu      sync.Mutex
	created map[string]bool
}

// OpenSQL connects to the output database.
func OpenSQL(ctx context.Context, driver, dsn, runID string, nullSentinel bool, logger *zap.Logger) (*SQL, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpeningDatabase, err)
	}
	if driver == DriverSQLite {
		// A single connection keeps ":memory:" databases alive across writes.
		db.SetMaxOpenConns(1)
	}
	return NewSQL(db, runID, nullSentinel, logger), nil
}

// NewSQL wraps an open connection.
func NewSQL(db *sqlx.DB, runID string, nullSentinel bool, logger *zap.Logger) *SQL {
	return &SQL{
		db:      db,
		enc:     encoder{runID: runID, nullSentinel: nullSentinel},
		logger:  logger.Named("sql"),
		created: make(map[string]bool),
	}
}

func (s *SQL) WriteAccessibility(ctx context.Context, results []accessibility.Result) error {
	return s.write(ctx, s.enc.accessibility(results))
}

func (s *SQL) WriteTravelTimes(ctx context.Context, rows []accumulate.Row[solver.ODPair]) error {
	return s.write(ctx, s.enc.travelTimes(rows))
}

func (s *SQL) WriteThresholdPolygons(ctx context.Context, polys []coverage.ThresholdPolygon) error {
	return s.write(ctx, s.enc.thresholdPolygons(polys))
}

func (s *SQL) WriteStopStats(ctx context.Context, rows []StopRow) error {
	return s.write(ctx, s.enc.stopStats(rows))
}

func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) write(ctx context.Context, b batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureTable(ctx, b.table); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrWritingRows, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	query := insertQuery(b.table)
	for _, r := range b.records {
		values := r.values
		if b.table.spatial {
			text, err := geometryText(r.geometry)
			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("%w: %s: %w", ErrWritingRows, r.key, err)
			}
			values["geometry"] = text
		}
		if _, err := tx.NamedExecContext(ctx, query, values); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("%w: %s: %v, rollback: %w", ErrWritingRows, b.table.name, err, rbErr)
			}
			return fmt.Errorf("%w: %s: %w", ErrWritingRows, b.table.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %w", ErrWritingRows, b.table.name, err)
	}

	metrics.RowsWritten.WithLabelValues("sql", b.table.name).Add(float64(len(b.records)))
	s.logger.Debug("Rows written", zap.String("table", b.table.name), zap.Int("rows", len(b.records)))
	return nil
}

func (s *SQL) ensureTable(ctx context.Context, t table) error {
	if s.created[t.name] {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, createQuery(t)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCreatingTable, t.name, err)
	}
	s.created[t.name] = true
	return nil
}

func createQuery(t table) string {
	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		defs[i] = c.name + " " + c.typ
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.name, strings.Join(defs, ", "))
}

func insertQuery(t table) string {
	names := t.columnNames()
	params := make([]string, len(names))
	for i, n := range names {
		params[i] = ":" + n
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(names, ", "), strings.Join(params, ", "))
}
