package pg2parquet_test

import (
	"context"
	"os"
	"testing"

	"github.com/exyi/pg2parquet"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// getTestDatabaseURL returns the integration test database, skipping the
// test entirely when none is configured, matching how the rest of this
// test suite treats a real PostgreSQL server as an optional dependency.
func getTestDatabaseURL(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		return url
	}
	t.Skip("TEST_DATABASE_URL not set, skipping catalog integration test")
	return ""
}

func TestCatalog_ResolveWellKnownScalars(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, getTestDatabaseURL(t))
	require.NoError(t, err)
	defer pool.Close()

	catalog := pg2parquet.NewCatalog(pool)

	pgt, err := catalog.Resolve(ctx, 23) // int4
	require.NoError(t, err)
	require.Equal(t, pg2parquet.KindScalar, pgt.Kind)
	require.Equal(t, "int4", pgt.Name)
}

func TestCatalog_ResolveDomainOverArray(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, getTestDatabaseURL(t))
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		CREATE DOMAIN pg2parquet_test_nonneg_int_array AS int4[] NOT NULL;
	`)
	require.NoError(t, err)
	defer pool.Exec(ctx, `DROP DOMAIN IF EXISTS pg2parquet_test_nonneg_int_array`)

	var oid uint32
	require.NoError(t, pool.QueryRow(ctx, `SELECT 'pg2parquet_test_nonneg_int_array'::regtype::oid`).Scan(&oid))

	catalog := pg2parquet.NewCatalog(pool)
	pgt, err := catalog.Resolve(ctx, oid)
	require.NoError(t, err)
	require.NotNil(t, pgt.DomainOf)
	require.True(t, pgt.DomainNotNull)
	require.Equal(t, pg2parquet.KindArray, pgt.Kind)
	require.NotNil(t, pgt.Element)
	require.Equal(t, "int4", pgt.Element.Name)
}

func TestCatalog_ResolveCompositeAndEnum(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, getTestDatabaseURL(t))
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		CREATE TYPE pg2parquet_test_mood AS ENUM ('sad', 'ok', 'happy');
		CREATE TYPE pg2parquet_test_point AS (x float8, y float8, mood pg2parquet_test_mood);
	`)
	require.NoError(t, err)
	defer func() {
		pool.Exec(ctx, `DROP TYPE IF EXISTS pg2parquet_test_point`)
		pool.Exec(ctx, `DROP TYPE IF EXISTS pg2parquet_test_mood`)
	}()

	var oid uint32
	require.NoError(t, pool.QueryRow(ctx, `SELECT 'pg2parquet_test_point'::regtype::oid`).Scan(&oid))

	catalog := pg2parquet.NewCatalog(pool)
	pgt, err := catalog.Resolve(ctx, oid)
	require.NoError(t, err)
	require.Equal(t, pg2parquet.KindComposite, pgt.Kind)
	require.Len(t, pgt.Fields, 3)
	require.Equal(t, "x", pgt.Fields[0].Name)
	require.Equal(t, "mood", pgt.Fields[2].Name)
	require.Equal(t, pg2parquet.KindEnum, pgt.Fields[2].Type.Kind)
	require.Equal(t, []string{"sad", "ok", "happy"}, pgt.Fields[2].Type.EnumLabels)
}
