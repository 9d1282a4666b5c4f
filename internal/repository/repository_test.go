package repository_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nikolayk812/cart-service/internal/migrations"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// startPostgres starts an empty database and migrates it the same way the
// service does on boot.
func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	container, err := postgres.Run(ctx, "postgres:17.6-alpine3.22",
		postgres.WithDatabase("cart"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container, "", fmt.Errorf("container.ConnectionString: %w", err)
	}

	if err := migrations.Run(connStr, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		return container, "", fmt.Errorf("migrations.Run: %w", err)
	}

	return container, connStr, nil
}
