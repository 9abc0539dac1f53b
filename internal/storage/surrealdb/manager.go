// Package surrealdb provides the SurrealDB-backed historical price cache.
package surrealdb

import (
	"context"
	"fmt"

	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/surrealdb/surrealdb.go"
)

// priceTable holds one record per symbol+date, keyed by the cache key
const priceTable = "historical_price"

// Connect opens a SurrealDB connection, signs in, selects the namespace/database
// and defines the tables the cache uses.
func Connect(ctx context.Context, logger *common.Logger, config common.SurrealDBConfig) (*surrealdb.DB, error) {
	db, err := surrealdb.New(config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Username,
		"pass": config.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Namespace, config.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// SurrealDB v3 errors on querying non-existent tables
	if err := defineTables(ctx, db); err != nil {
		db.Close(ctx)
		return nil, err
	}

	logger.Info().
		Str("address", config.Address).
		Str("namespace", config.Namespace).
		Str("database", config.Database).
		Msg("SurrealDB connection established")

	return db, nil
}

func defineTables(ctx context.Context, db *surrealdb.DB) error {
	sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", priceTable)
	if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
		return fmt.Errorf("failed to define table %s: %w", priceTable, err)
	}
	return nil
}
