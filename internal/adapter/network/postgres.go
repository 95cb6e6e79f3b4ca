package network

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // postgres driver

	"github.com/V4T54L/beacon/internal/domain"
)

// PostgresTransport opens a database/sql pool against host and port. User,
// password, database and sslmode come from the standard PG* environment
// variables, which lib/pq reads for any parameter missing from the DSN.
type PostgresTransport struct {
	maxOpen int
}

func NewPostgresTransport(opts TransportOptions) *PostgresTransport {
	return &PostgresTransport{maxOpen: opts.MaxConnections}
}

func (t *PostgresTransport) Dial(ctx context.Context, endpoint domain.Endpoint) (domain.Conn, error) {
	dsn := fmt.Sprintf("host=%s port=%d", endpoint.Host, endpoint.Port)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	db.SetMaxOpenConns(t.maxOpen)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping %s: %w", endpoint.Address(), err)
	}
	return &sqlConn{db: db}, nil
}

type sqlConn struct {
	db *sql.DB
}

func (c *sqlConn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}
