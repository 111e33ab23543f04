package recordaccess

import (
	"context"
	"time"

	"inkwell/internal/apiclient"
	"inkwell/internal/config"
)

// Connect prefers the daemon API and falls back to direct store access when
// no daemon answers on the configured bind address.
func Connect(ctx context.Context, cfg *config.Config) (Access, error) {
	client := apiclient.New(cfg.Paths.APIBind, cfg.Paths.APIToken)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err == nil {
		return NewHTTPAccess(client), nil
	}

	return NewStoreAccess(cfg)
}
