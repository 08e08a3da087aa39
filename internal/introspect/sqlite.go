package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLite reads the catalog of an open SQLite database. Tables come in
// creation order; internal sqlite_* tables are skipped.
func SQLite(ctx context.Context, db *sql.DB) (*Catalog, error) {
	names, err := sqliteTableNames(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	cat := newCatalog()
	for _, name := range names {
		tbl := cat.table(name)
		if tbl.Columns, err = sqliteColumns(ctx, db, name); err != nil {
			return nil, fmt.Errorf("reading columns of %s: %w", name, err)
		}
		if tbl.ForeignKeys, err = sqliteForeignKeys(ctx, db, name); err != nil {
			return nil, fmt.Errorf("reading foreign keys of %s: %w", name, err)
		}
	}

	resolveImplicitReferences(cat)
	return cat, nil
}

func sqliteTableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY rowid
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var defaultValue sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, Column{
			Name:       name,
			Type:       colType,
			Nullable:   notNull == 0 && pk == 0,
			PrimaryKey: pk > 0,
		})
	}
	return cols, rows.Err()
}

func sqliteForeignKeys(ctx context.Context, db *sql.DB, table string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var id, seq int
		var refTable, from string
		var to sql.NullString
		var onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		fks = append(fks, ForeignKey{
			Column:         from,
			ReferredTable:  refTable,
			ReferredColumn: to.String,
		})
	}
	return fks, rows.Err()
}

// resolveImplicitReferences fills in the referred column of foreign keys
// declared without one, which SQLite resolves to the parent's primary key.
func resolveImplicitReferences(cat *Catalog) {
	for _, tbl := range cat.Tables() {
		for i, fk := range tbl.ForeignKeys {
			if fk.ReferredColumn != "" {
				continue
			}
			parent, ok := cat.lookup(fk.ReferredTable)
			if !ok {
				continue
			}
			for _, col := range parent.Columns {
				if col.PrimaryKey {
					tbl.ForeignKeys[i].ReferredColumn = col.Name
					break
				}
			}
		}
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
