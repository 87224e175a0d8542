// Package sqlconn opens read-only connections to tenant databases and
// exposes the three things the SQL agent needs from them: schema text for
// an allow-list of tables, table listing, and statement execution.
//
// The read-only session setting applied at connect time is the safety
// boundary for generated SQL. Statements are never inspected here.
package sqlconn

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/54b3r/plugmind-go/internal/bot"
)

// Dialect names a supported tenant database flavour.
type Dialect string

const (
	// DialectMySQL is the default tenant dialect.
	DialectMySQL Dialect = "mysql"
	// DialectPostgres connects through pgx.
	DialectPostgres Dialect = "postgres"
	// DialectSQLite opens a local database file read-only.
	DialectSQLite Dialect = "sqlite"
)

// pingTimeout bounds the connectivity check performed by Open.
const pingTimeout = 5 * time.Second

// DB is a tenant database handle. It is safe for concurrent use.
type DB struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an existing handle. Used by tests and by callers that manage
// their own *sql.DB.
func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{db: db, dialect: dialect}
}

// Open connects to the database described by d and verifies it answers a
// ping within five seconds.
func Open(ctx context.Context, d bot.Database) (*DB, error) {
	driver, dsn, err := DataSource(d)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlconn: open %s: %w", d.Driver, err)
	}

	conn := &DB{db: db, dialect: Dialect(d.Driver)}
	if err := conn.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return conn, nil
}

// TestConnection opens and immediately closes a connection to d.
func TestConnection(ctx context.Context, d bot.Database) error {
	conn, err := Open(ctx, d)
	if err != nil {
		return err
	}
	return conn.Close()
}

// DataSource returns the database/sql driver name and DSN for d. Every
// dialect requests a read-only session.
func DataSource(d bot.Database) (driver, dsn string, err error) {
	switch Dialect(d.Driver) {
	case DialectMySQL, "":
		cfg := mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = hostPort(d.Host, d.Port, 3306)
		cfg.DBName = d.Name
		cfg.Timeout = pingTimeout
		cfg.Params = map[string]string{"transaction_read_only": "1"}
		return "mysql", cfg.FormatDSN(), nil

	case DialectPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Password),
			Host:     hostPort(d.Host, d.Port, 5432),
			Path:     "/" + d.Name,
			RawQuery: "default_transaction_read_only=on&connect_timeout=5",
		}
		return "pgx", u.String(), nil

	case DialectSQLite:
		if d.Name == "" {
			return "", "", fmt.Errorf("sqlconn: sqlite database requires a file path in name")
		}
		return "sqlite", "file:" + d.Name + "?mode=ro&_pragma=busy_timeout(5000)", nil
	}
	return "", "", fmt.Errorf("sqlconn: unsupported driver %q", d.Driver)
}

func hostPort(host string, port, def int) string {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = def
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Ping verifies the database is reachable.
func (c *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlconn: ping %s: %w", c.dialect, err)
	}
	return nil
}

// Dialect reports which flavour this handle speaks.
func (c *DB) Dialect() Dialect { return c.dialect }

// Close releases the underlying pool.
func (c *DB) Close() error {
	return c.db.Close()
}
