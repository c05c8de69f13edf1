package sql

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/stdlib"
)

// Connection is where a unified table is stored. Path is the DuckDB file, empty for an
// in-memory database; the other fields apply to ClickHouse and Postgres.
type Connection struct {
	Dialect  string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Path     string
}

// Connect opens and pings the database of c and returns its Dialect.
func Connect(c Connection) (*Dialect, error) {
	var (
		db *sql.DB
		e  error
	)
	switch c.Dialect {
	case CH:
		db, e = OpenClickHouse(c.Host, c.Port, c.Database, c.User, c.Password)
	case PG:
		db, e = OpenPostgres(c.Host, c.Port, c.Database, c.User, c.Password)
	case Duck:
		db, e = OpenDuckDB(c.Path)
	default:
		return nil, fmt.Errorf("unsupported dialect %s", c.Dialect)
	}

	if e != nil {
		return nil, e
	}

	var d *Dialect
	if d, e = NewDialect(c.Dialect, db); e != nil {
		_ = db.Close()
		return nil, e
	}

	return d, nil
}

// OpenClickHouse connects over the native protocol. port 0 means 9000, database "" means default.
func OpenClickHouse(host string, port int, database, user, password string) (*sql.DB, error) {
	if port == 0 {
		port = 9000
	}

	if database == "" {
		database = "default"
	}

	db := clickhouse.OpenDB(
		&clickhouse.Options{
			Addr: []string{fmt.Sprintf("%s:%d", host, port)},
			Auth: clickhouse.Auth{
				Database: database,
				Username: user,
				Password: password,
			},
			DialTimeout: 300 * time.Second,
			Compression: &clickhouse.Compression{
				Method: clickhouse.CompressionLZ4,
				Level:  0,
			},
		})

	if e := ping(db); e != nil {
		return nil, e
	}

	return db, nil
}

// OpenPostgres connects through the pgx driver. port 0 means 5432.
func OpenPostgres(host string, port int, database, user, password string) (*sql.DB, error) {
	if port == 0 {
		port = 5432
	}

	connectionStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s", user, password, host, port, database)
	var (
		db *sql.DB
		e  error
	)
	if db, e = sql.Open("pgx", connectionStr); e != nil {
		return nil, e
	}

	if e := ping(db); e != nil {
		return nil, e
	}

	return db, nil
}

func OpenDuckDB(path string) (*sql.DB, error) {
	var (
		db *sql.DB
		e  error
	)
	if db, e = sql.Open("duckdb", path); e != nil {
		return nil, e
	}

	if e := ping(db); e != nil {
		return nil, e
	}

	return db, nil
}

func ping(db *sql.DB) error {
	if e := db.Ping(); e != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect: %w", e)
	}

	return nil
}
