// Package cmd provides shared construction helpers for the flowrift
// binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowrift/flowrift/pkg/persistence"
	"github.com/flowrift/flowrift/pkg/persistence/file"
	"github.com/flowrift/flowrift/pkg/persistence/postgresql"
)

// NewPersistence creates a persistence backend from the database URL scheme:
// postgres for postgres:// and postgresql://, the JSON file store otherwise.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create postgres persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
