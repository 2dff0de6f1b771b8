package journal

import (
	"context"
	"fmt"
)

// Open returns the store for driver: "none" (or empty), "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "none":
		return Nop{}, nil
	case "sqlite":
		return OpenSQLite(ctx, dsn)
	case "postgres":
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("journal: unknown driver %q", driver)
	}
}
