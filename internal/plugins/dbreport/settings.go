package dbreport

import (
	"context"
	"database/sql"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"

	"nosey/internal/config"
)

// DefaultDatabase is the schema reports are written to.
const DefaultDatabase = "nosey_reports"

// Settings locate the MySQL server holding the reports.
type Settings struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// SettingsFromEnv reads the connection from DB_* variables, which may come
// from a .env file, with the defaults of a local server.
func SettingsFromEnv(env config.Env) Settings {
	return Settings{
		Host:     env.String("DB_HOST", "127.0.0.1"),
		Port:     env.String("DB_PORT", "3306"),
		User:     env.String("DB_USERNAME", "root"),
		Password: env.String("DB_PASSWORD", ""),
		Database: env.String("NOSEY_DB_DATABASE", DefaultDatabase),
	}
}

// DSN returns the data source name, with or without the report schema.
func (s Settings) DSN(withDatabase bool) string {
	c := mysql.NewConfig()
	c.User = s.User
	c.Passwd = s.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(s.Host, s.Port)
	c.ParseTime = true
	if withDatabase {
		c.DBName = s.Database
	}
	return c.FormatDSN()
}

// Open connects to the server and checks the connection.
func Open(ctx context.Context, s Settings, withDatabase bool) (*sql.DB, error) {
	db, err := sql.Open("mysql", s.DSN(withDatabase))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database server: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database server: %w", err)
	}
	return db, nil
}
