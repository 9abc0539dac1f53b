package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/iexgate/internal/common"
	tcommon "github.com/bobmcallan/iexgate/tests/common"
	surreal "github.com/surrealdb/surrealdb.go"
)

// testDB starts the shared SurrealDB container and returns a connected *surreal.DB
// on a database unique to the test.
func testDB(t *testing.T) *surreal.DB {
	t.Helper()

	sc := tcommon.StartSurrealDB(t)
	ctx := context.Background()

	// Subtest names contain "/" which SurrealDB rejects in database names
	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := common.SurrealDBConfig{
		Address:   sc.Address(),
		Namespace: "iexgate_test",
		Database:  fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%100000),
		Username:  "root",
		Password:  "root",
	}

	db, err := Connect(ctx, testLogger(), cfg)
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}

	t.Cleanup(func() {
		db.Close(context.Background())
	})

	return db
}

// testLogger returns a silent logger for tests.
func testLogger() *common.Logger {
	return common.NewSilentLogger()
}
