package app

import (
	"net/url"
	"strings"
)

// connString optionally appends disable_prepared_binary_result=yes, which
// pgbouncer's transaction pooling mode needs. An explicit value in the URL
// wins.
func connString(raw string, disablePreparedBinary bool) string {
	if !disablePreparedBinary {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	query := parsed.Query()
	if query.Has("disable_prepared_binary_result") {
		return raw
	}
	query.Set("disable_prepared_binary_result", "yes")
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// databaseName extracts the database name from either a postgres:// URL or a
// keyword=value DSN, for span attribution.
func databaseName(dsn string) string {
	dsn = strings.TrimSpace(dsn)

	if parsed, err := url.Parse(dsn); err == nil && parsed.Scheme != "" {
		if name := strings.Trim(parsed.Path, "/ "); name != "" {
			return name
		}
	}

	for _, token := range strings.Fields(dsn) {
		key, value, ok := strings.Cut(token, "=")
		if !ok || key != "dbname" {
			continue
		}
		if name := strings.Trim(value, `"' `); name != "" {
			return name
		}
	}
	return ""
}

const maxTracedQueryLen = 512

// traceQuery collapses whitespace and caps the statement recorded on spans.
func traceQuery(query string) string {
	compact := strings.Join(strings.Fields(query), " ")
	if len(compact) > maxTracedQueryLen {
		return compact[:maxTracedQueryLen] + "..."
	}
	return compact
}
