package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/enrollhq/admitflow/pkg/store"
	"github.com/enrollhq/admitflow/pkg/store/memory"
	"github.com/enrollhq/admitflow/pkg/store/postgresql"
)

// NewStore creates a state store from a database URL. postgres:// URLs get
// the PostgreSQL store; memory:// gets the in-memory store for local runs.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) store.Store {
	switch parseStoreProvider(databaseURL) {
	case "postgres", "postgresql":
		st, err := postgresql.NewStore(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL store: %w", err))
		}

		return st
	case "memory":
		return memory.NewStore()
	default:
		panic("Unsupported state store provider in URL: " + databaseURL)
	}
}

func parseStoreProvider(databaseURL string) string {
	parts := strings.SplitN(databaseURL, "://", 2)

	return parts[0]
}
