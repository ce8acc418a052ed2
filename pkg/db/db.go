package db

import (
	"context"

	"github.com/go-pg/pg/v10"
)

// DB is a database connection with repository helpers on top of go-pg.
type DB struct {
	*pg.DB
}

func New(dbc *pg.DB) DB {
	return DB{DB: dbc}
}

// Ping checks that the database connection is alive.
func (db DB) Ping(ctx context.Context) error {
	_, err := db.DB.ExecContext(ctx, "SELECT 1")
	return err
}
