package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// dialect describes how to open and migrate one supported database.
type dialect struct {
	name          string // config value: sqlite, postgres, mysql
	driverName    string // database/sql driver
	gooseDialect  string
	migrationsDir string
	singleConn    bool // SQLite doesn't support concurrent writes
	normalizeDSN  func(string) (string, error)
}

var dialects = map[string]dialect{
	"sqlite": {
		name:          "sqlite",
		driverName:    "sqlite",
		gooseDialect:  "sqlite3",
		migrationsDir: "migrations/sqlite",
		singleConn:    true,
		normalizeDSN:  sqliteDSN,
	},
	"postgres": {
		name:          "postgres",
		driverName:    "pgx",
		gooseDialect:  "postgres",
		migrationsDir: "migrations/postgres",
		normalizeDSN:  func(dsn string) (string, error) { return dsn, nil },
	},
	"mysql": {
		name:          "mysql",
		driverName:    "mysql",
		gooseDialect:  "mysql",
		migrationsDir: "migrations/mysql",
		normalizeDSN:  mysqlDSN,
	},
}

func lookupDialect(name string) (dialect, error) {
	if name == "" {
		name = "sqlite"
	}
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver: %s (available: %v)", name, availableDialects())
	}
	return d, nil
}

func availableDialects() []string {
	names := make([]string, 0, len(dialects))
	for n := range dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// sqliteDSN maps an empty DSN to a private in-memory database and adds the
// pragmas the store relies on to file paths.
func sqliteDSN(dsn string) (string, error) {
	if dsn == "" || dsn == ":memory:" {
		return ":memory:", nil
	}
	if strings.Contains(dsn, "?") {
		return dsn, nil
	}
	return dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
}

// mysqlDSN forces parseTime so DATETIME columns scan into time.Time, and
// clientFoundRows so UPDATE reports matched rather than changed rows.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}
