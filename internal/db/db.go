package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"pdf-rag/internal/config"
	"pdf-rag/internal/vectorindex"
)

const (
	DriverPGDriver = "pgdriver"
	DriverPostgres = "postgres"
)

// ChunkVector is one indexed row. RowID is the position of the chunk in the
// corpus, so it is assigned by the caller rather than by the database.
type ChunkVector struct {
	bun.BaseModel `bun:"table:chunk_vectors,alias:cv"`
	RowID         int64           `bun:"row_id,pk"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a connection pool with the configured driver: bun's own
// pgdriver, or lib/pq registered as "postgres".
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case DriverPGDriver, "":
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	case DriverPostgres:
		return sql.Open(DriverPostgres, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver: %q", cfg.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	_, err := db.NewCreateTable().Model((*ChunkVector)(nil)).IfNotExists().Exec(ctx)
	return err
}

// PGVectorIndex keeps the vectors in Postgres and lets pgvector's <->
// operator (Euclidean distance) rank them.
type PGVectorIndex struct {
	db *bun.DB
}

// NewPGVectorIndex prepares the table and empties it: the corpus lives in
// process memory, so rows left over from a previous run are meaningless.
func NewPGVectorIndex(ctx context.Context, db *bun.DB) (*PGVectorIndex, error) {
	if err := InitDB(ctx, db); err != nil {
		return nil, err
	}
	idx := &PGVectorIndex{db: db}
	if err := idx.Reset(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (p *PGVectorIndex) Add(ctx context.Context, vectors ...[]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		next, err := tx.NewSelect().Model((*ChunkVector)(nil)).Count(ctx)
		if err != nil {
			return err
		}
		rows := make([]ChunkVector, len(vectors))
		for i, vec := range vectors {
			rows[i] = ChunkVector{RowID: int64(next + i), Embedding: pgvector.NewVector(vec)}
		}
		_, err = tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
}

type neighborRow struct {
	RowID    int64   `bun:"row_id"`
	Distance float64 `bun:"distance"`
}

// Search returns at most k rows. pgvector reports the plain Euclidean
// distance; it is squared here to match the other backends.
func (p *PGVectorIndex) Search(ctx context.Context, query []float32, k int) ([]vectorindex.Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}

	q := pgvector.NewVector(query)
	var rows []neighborRow
	err := p.db.NewSelect().
		Model((*ChunkVector)(nil)).
		Column("row_id").
		ColumnExpr("embedding <-> ? AS distance", q).
		OrderExpr("embedding <-> ?", q).
		Limit(k).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	hits := make([]vectorindex.Neighbor, len(rows))
	for i, r := range rows {
		hits[i] = vectorindex.Neighbor{Row: int(r.RowID), Distance: float32(r.Distance * r.Distance)}
	}
	return hits, nil
}

func (p *PGVectorIndex) Count(ctx context.Context) (int, error) {
	return p.db.NewSelect().Model((*ChunkVector)(nil)).Count(ctx)
}

func (p *PGVectorIndex) Reset(ctx context.Context) error {
	_, err := p.db.NewTruncateTable().Model((*ChunkVector)(nil)).Exec(ctx)
	if err == nil {
		log.Debug().Msg("Truncated chunk_vectors")
	}
	return err
}

func DropChunkVectors(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*ChunkVector)(nil)).IfExists().Exec(ctx)
	return err
}
