package introspect

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Postgres queries the PostgreSQL catalogs of the given schemas. Tables are
// keyed by bare name when a single schema is introspected and by
// "schema.table" otherwise.
func Postgres(ctx context.Context, pool *pgxpool.Pool, schemas []string) (*Catalog, error) {
	qualify := len(schemas) > 1
	name := func(schema, table string) string {
		if qualify {
			return schema + "." + table
		}
		return table
	}

	cat, err := queryTablesAndColumns(ctx, pool, schemas, name)
	if err != nil {
		return nil, fmt.Errorf("querying tables and columns: %w", err)
	}

	var (
		pks []pkRow
		fks []fkRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := queryPrimaryKeys(gctx, pool, schemas)
		if err != nil {
			return fmt.Errorf("querying primary keys: %w", err)
		}
		pks = rows
		return nil
	})
	g.Go(func() error {
		rows, err := queryForeignKeys(gctx, pool, schemas)
		if err != nil {
			return fmt.Errorf("querying foreign keys: %w", err)
		}
		fks = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	applyPrimaryKeys(cat, pks, name)
	applyForeignKeys(cat, fks, name)
	return cat, nil
}

func queryTablesAndColumns(ctx context.Context, pool *pgxpool.Pool, schemas []string, name func(string, string) string) (*Catalog, error) {
	query := `
		SELECT
			n.nspname AS schema_name,
			c.relname AS table_name,
			a.attname AS column_name,
			format_type(a.atttypid, a.atttypmod) AS data_type,
			NOT a.attnotnull AS is_nullable
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid
		WHERE c.relkind IN ('r', 'p')
			AND NOT c.relispartition
			AND a.attnum > 0
			AND NOT a.attisdropped
			AND n.nspname = ANY($1)
		ORDER BY n.nspname, c.relname, a.attnum
	`

	rows, err := pool.Query(ctx, query, schemas)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cat := newCatalog()
	for rows.Next() {
		var schemaName, tableName, colName, dataType string
		var nullable bool
		if err := rows.Scan(&schemaName, &tableName, &colName, &dataType, &nullable); err != nil {
			return nil, err
		}
		tbl := cat.table(name(schemaName, tableName))
		tbl.Columns = append(tbl.Columns, Column{
			Name:     colName,
			Type:     dataType,
			Nullable: nullable,
		})
	}

	return cat, rows.Err()
}

type pkRow struct {
	schema, table, column string
}

func queryPrimaryKeys(ctx context.Context, pool *pgxpool.Pool, schemas []string) ([]pkRow, error) {
	query := `
		SELECT
			n.nspname AS schema_name,
			c.relname AS table_name,
			a.attname AS column_name
		FROM pg_constraint con
		JOIN pg_class c ON c.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS u(attnum, ord)
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = u.attnum
		WHERE con.contype = 'p'
			AND n.nspname = ANY($1)
		ORDER BY n.nspname, c.relname, u.ord
	`

	rows, err := pool.Query(ctx, query, schemas)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pkRow
	for rows.Next() {
		var r pkRow
		if err := rows.Scan(&r.schema, &r.table, &r.column); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type fkRow struct {
	childSchema, childTable, childColumn    string
	parentSchema, parentTable, parentColumn string
}

func queryForeignKeys(ctx context.Context, pool *pgxpool.Pool, schemas []string) ([]fkRow, error) {
	query := `
		SELECT
			cn.nspname AS child_schema,
			cc.relname AS child_table,
			ca.attname AS child_column,
			pn.nspname AS parent_schema,
			pc.relname AS parent_table,
			pa.attname AS parent_column
		FROM pg_constraint con
		JOIN pg_class cc ON cc.oid = con.conrelid
		JOIN pg_namespace cn ON cn.oid = cc.relnamespace
		JOIN pg_class pc ON pc.oid = con.confrelid
		JOIN pg_namespace pn ON pn.oid = pc.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS u(child_attnum, parent_attnum, ord)
		JOIN pg_attribute ca ON ca.attrelid = cc.oid AND ca.attnum = u.child_attnum
		JOIN pg_attribute pa ON pa.attrelid = pc.oid AND pa.attnum = u.parent_attnum
		WHERE con.contype = 'f'
			AND cn.nspname = ANY($1)
		ORDER BY cn.nspname, cc.relname, con.conname, u.ord
	`

	rows, err := pool.Query(ctx, query, schemas)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fkRow
	for rows.Next() {
		var r fkRow
		if err := rows.Scan(&r.childSchema, &r.childTable, &r.childColumn,
			&r.parentSchema, &r.parentTable, &r.parentColumn); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func applyPrimaryKeys(cat *Catalog, rows []pkRow, name func(string, string) string) {
	for _, r := range rows {
		tbl, ok := cat.lookup(name(r.schema, r.table))
		if !ok {
			continue
		}
		for i := range tbl.Columns {
			if tbl.Columns[i].Name == r.column {
				tbl.Columns[i].PrimaryKey = true
			}
		}
	}
}

func applyForeignKeys(cat *Catalog, rows []fkRow, name func(string, string) string) {
	for _, r := range rows {
		tbl, ok := cat.lookup(name(r.childSchema, r.childTable))
		if !ok {
			continue
		}
		tbl.ForeignKeys = append(tbl.ForeignKeys, ForeignKey{
			Column:         r.childColumn,
			ReferredTable:  name(r.parentSchema, r.parentTable),
			ReferredColumn: r.parentColumn,
		})
	}
}
