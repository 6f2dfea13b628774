package transcript

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/lingostream/lingostream/pkg/session/frames"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists transcript entries to Postgres. Migrations run once at
// open time.
type Store struct {
	pool *pgxpool.Pool
}

// OpenStore connects to Postgres, applies pending migrations, and returns a
// ready store.
func OpenStore(ctx context.Context, dsn string) (*Store, error) {
	if err := migrate(dsn); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("transcript: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcript: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("transcript: open for migrate: %w", err)
	}
	defer db.Close()
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("transcript: set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("transcript: migrate: %w", err)
	}
	return nil
}

// Append writes a batch of entries for one session. language resolves the
// stored language label for each entry's role.
func (s *Store) Append(ctx context.Context, sessionID string, language func(frames.Role) string, batch []frames.TranscriptMessage) error {
	for _, m := range batch {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO transcript_messages (session_id, role, language, content, offset_ms)
			 VALUES ($1, $2, $3, $4, $5)`,
			sessionID, string(m.Role), language(m.Role), m.Text, m.Timestamp.Milliseconds())
		if err != nil {
			return fmt.Errorf("transcript: insert: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
