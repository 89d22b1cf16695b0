package db

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries wraps a connection pool and exposes typed database operations.
type Queries struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}
