// Package config resolves database settings for the pipeline binaries.
//
// Settings come from the environment (DB_HOST, DB_NAME, DB_USER, DB_PASSWORD,
// DB_PORT) with defaults suitable for a local run. When the password is
// absent and stdin is a terminal, the user is prompted securely; the password
// never appears in argv or shell history.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// DB holds connection settings for the relational backend.
type DB struct {
	Host     string
	Name     string
	User     string
	Password string
	Port     int
}

// envOr returns the value of key, or def when unset/blank.
func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// FromEnv builds DB settings from the environment.
//
// Edge cases:
//   - A malformed DB_PORT is an error rather than a silent fallback; a typo'd
//     port pointing a load at the wrong instance is worth failing loudly for.
//   - The password may legitimately be empty (trust-auth local databases);
//     use PromptPasswordIfEmpty when an interactive fallback is wanted.
func FromEnv() (DB, error) {
	cfg := DB{
		Host:     envOr("DB_HOST", "localhost"),
		Name:     envOr("DB_NAME", "fleximart"),
		User:     envOr("DB_USER", "root"),
		Password: os.Getenv("DB_PASSWORD"),
	}

	portStr := envOr("DB_PORT", "5432")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return DB{}, fmt.Errorf("config: invalid DB_PORT %q: %w", portStr, err)
	}
	cfg.Port = port

	return cfg, nil
}

// PromptPasswordIfEmpty asks for the password on the terminal when it was not
// provided via the environment. Non-interactive runs (cron, CI) skip the
// prompt and proceed with the empty password.
func (c *DB) PromptPasswordIfEmpty() error {
	if c.Password != "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}

	fmt.Fprintf(os.Stderr, "Enter password for %s@%s:%d: ", c.User, c.Host, c.Port)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("config: read password: %w", err)
	}
	c.Password = string(pw)
	return nil
}

// DSN renders the settings as a DSN for the given storage kind.
//
// Kinds:
//   - "postgres": pgx URL form.
//   - "sqlite": DB_NAME is used as the database file path.
//   - "mssql": sqlserver URL form.
func (c DB) DSN(kind string) (string, error) {
	switch kind {
	case "postgres":
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
			Path:   "/" + c.Name,
		}
		return u.String(), nil

	case "sqlite":
		name := c.Name
		if !strings.ContainsRune(name, '.') {
			name += ".db"
		}
		return name, nil

	case "mssql":
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.User, c.Password),
			Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
			RawQuery: url.Values{"database": []string{c.Name}}.Encode(),
		}
		return u.String(), nil

	default:
		return "", fmt.Errorf("config: unsupported storage kind %q", kind)
	}
}
