// Package pgfactory provides ready-made genpool factory functions for
// dedicated PostgreSQL connections. Each pooled resource is one
// *pgx.Conn, opened and pinged on create and closed on dispose.
package pgfactory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/uryu/genpool"
)

// New returns the create and dispose functions for pooling connections to
// connString. The connection string accepts everything pgx.Connect does,
// including DSN and URL forms.
func New(connString string) (genpool.CreateFunc[*pgx.Conn], genpool.DisposeFunc[*pgx.Conn]) {
	create := func(ctx context.Context) (*pgx.Conn, error) {
		conn, err := pgx.Connect(ctx, connString)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := conn.Ping(ctx); err != nil {
			_ = conn.Close(ctx)
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return conn, nil
	}
	dispose := func(ctx context.Context, conn *pgx.Conn) error {
		return conn.Close(ctx)
	}
	return create, dispose
}
