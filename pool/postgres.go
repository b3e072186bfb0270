package pool

import (
	"context"
	"net/url"
	"strings"

	"github.com/lib/pq"

	"github.com/exograph/exo-core/dialect"
	dialectsql "github.com/exograph/exo-core/dialect/sql"
)

// ResolveSSLMode picks a sslmode for rawURL the way the connection manager's
// TLS layer is specified: TLS only when at least one resolved host is TCP,
// never for a unix-socket host (an empty or path-shaped host, the
// convention lib/pq and libpq both use for "connect via socket").
func ResolveSSLMode(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if host == "" || strings.HasPrefix(host, "/") {
		return "disable", nil
	}
	return "require", nil
}

// NewPostgresDialer returns a Dialer that opens one *database/sql.DB-backed
// connection per dial against rawURL, a postgres:// connection URL.
// sslmode is injected via ResolveSSLMode unless rawURL already names one.
func NewPostgresDialer(rawURL string) (Dialer, error) {
	dsn, err := pq.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(dsn, "sslmode=") {
		mode, err := ResolveSSLMode(rawURL)
		if err != nil {
			return nil, err
		}
		dsn += " sslmode=" + mode
	}
	return func(ctx context.Context) (dialect.Driver, error) {
		drv, _, err := dialectsql.OpenWithStats(dialect.Postgres, dsn, dialectsql.WithSlowQueryLog())
		if err != nil {
			return nil, err
		}
		if err := drv.DB().PingContext(ctx); err != nil {
			_ = drv.Close()
			return nil, err
		}
		return drv, nil
	}, nil
}
