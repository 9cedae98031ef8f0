package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

type DB struct {
	*sql.DB
	Dialect Dialect
}

func Open(ctx context.Context, dialect Dialect, databaseURL string, poolMax int) (*DB, error) {
	url := strings.TrimSpace(databaseURL)
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	d, err := sql.Open(string(dialect), url)
	if err != nil {
		return nil, err
	}

	max := poolMax
	if max <= 0 {
		max = 2
	}
	if dialect == SQLite {
		// sqlite allows a single writer
		max = 1
	}

	d.SetMaxOpenConns(max)
	d.SetMaxIdleConns(max)
	d.SetConnMaxLifetime(5 * time.Minute)
	d.SetConnMaxIdleTime(30 * time.Second)

	pingCtx := ctx
	var cancel func()
	if pingCtx == nil {
		pingCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	} else {
		pingCtx, cancel = context.WithTimeout(pingCtx, 5*time.Second)
	}
	defer cancel()

	if err := d.PingContext(pingCtx); err != nil {
		_ = d.Close()
		return nil, err
	}

	return &DB{DB: d, Dialect: dialect}, nil
}

// Rebind rewrites ? placeholders to $n for Postgres.
func (d *DB) Rebind(query string) string {
	if d.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
