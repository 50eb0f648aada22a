package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const defaultPostgresPort = 5432

// ParsedDatabaseURL holds the components of a postgres:// connection URL.
type ParsedDatabaseURL struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Options  map[string]string
}

// ParseDatabaseURL splits a postgres:// (or postgresql://) URL into its
// components. sslmode defaults to disable when the URL does not carry one.
func ParseDatabaseURL(rawURL string) (*ParsedDatabaseURL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	// postgresql:// is an accepted alias for postgres://
	rawURL = strings.Replace(rawURL, "postgresql://", "postgres://", 1)

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if u.Scheme != "postgres" {
		return nil, fmt.Errorf("invalid database URL scheme: %s (expected postgres or postgresql)", u.Scheme)
	}

	parsed := &ParsedDatabaseURL{
		Host:     u.Hostname(),
		Port:     defaultPostgresPort,
		Database: strings.TrimPrefix(u.Path, "/"),
		Options:  make(map[string]string),
	}

	if portStr := u.Port(); portStr != "" {
		parsed.Port, err = strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port in database URL: %w", err)
		}
	}

	if u.User != nil {
		parsed.User = u.User.Username()
		parsed.Password, _ = u.User.Password()
	}

	for key, values := range u.Query() {
		if len(values) > 0 {
			parsed.Options[key] = values[0]
		}
	}

	// sslmode is a first-class field, not a passthrough option
	if sslMode, ok := parsed.Options["sslmode"]; ok {
		parsed.SSLMode = sslMode
		delete(parsed.Options, "sslmode")
	} else {
		parsed.SSLMode = "disable"
	}

	return parsed, nil
}

// ToDSN renders the parsed URL as a libpq key/value DSN.
func (p *ParsedDatabaseURL) ToDSN() string {
	var b strings.Builder
	fmt.Fprintf(&b, "host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
	for key, value := range p.Options {
		fmt.Fprintf(&b, " %s=%s", key, value)
	}
	return b.String()
}

// ToURL renders the parsed components back into a postgres:// URL.
func (p *ParsedDatabaseURL) ToURL() string {
	return BuildDatabaseURL(p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// BuildDatabaseURL assembles a postgres:// URL from individual fields.
// The password is escaped so special characters survive the round trip.
func BuildDatabaseURL(host string, port int, user, password, database, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		user, url.QueryEscape(password), host, port, database, sslMode,
	)
}
