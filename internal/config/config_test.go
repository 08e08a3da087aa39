package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hurou927/schemalens/internal/trace"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PGHOST", "POSTGRES_HOST", "PGPORT", "POSTGRES_PORT", "PGDATABASE", "POSTGRES_DB",
		"PGUSER", "POSTGRES_USER", "PGPASSWORD", "POSTGRES_PASSWORD", "PGSSLMODE",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemalens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	clearEnv(t)
	cfg := Default()

	assert.Equal(t, 5432, cfg.Connection.Port)
	assert.Equal(t, "disable", cfg.Connection.SSLMode)
	assert.Equal(t, []string{"public"}, cfg.Schemas)
	assert.Equal(t, trace.DefaultVocabulary(), cfg.Vocabulary())
	assert.Error(t, cfg.ValidateForIntrospect())
}

func TestLoadEmptyPath(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
connection:
  host: db.internal
  database: warehouse
  user: analyst
schemas: [sales, crm]
exclude_tables: [schema_migrations]
stages:
  enrich: ai_enrichment
statuses:
  success: [ok]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Connection.Host)
	assert.Equal(t, 5432, cfg.Connection.Port)
	assert.Equal(t, []string{"sales", "crm"}, cfg.Schemas)
	assert.Equal(t, map[string]bool{"schema_migrations": true}, cfg.ExcludeSet())
	assert.NoError(t, cfg.ValidateForIntrospect())
	assert.Equal(t, "host=db.internal port=5432 dbname=warehouse user=analyst password= sslmode=disable", cfg.Connection.DSN())

	vocab := cfg.Vocabulary()
	assert.Equal(t, "extract", vocab.Extract)
	assert.Equal(t, "ai_enrichment", vocab.Enrich)
	assert.Equal(t, []string{"ok"}, vocab.Success)
	assert.Equal(t, []string{"failed"}, vocab.Failure)
}

func TestLoadEnvFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_HOST", "pg.example")
	t.Setenv("PGPORT", "6543")
	t.Setenv("PGDATABASE", "fromenv")
	t.Setenv("POSTGRES_USER", "envuser")
	t.Setenv("PGPASSWORD", "secret")

	path := writeConfig(t, `
connection:
  database: fromyaml
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pg.example", cfg.Connection.Host)
	assert.Equal(t, 6543, cfg.Connection.Port)
	assert.Equal(t, "fromyaml", cfg.Connection.Database, "yaml wins over env")
	assert.Equal(t, "envuser", cfg.Connection.User)
	assert.Equal(t, "secret", cfg.Connection.Password)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config file")

	_, err = Load(writeConfig(t, "schemas: [unterminated"))
	assert.ErrorContains(t, err, "parsing config file")

	_, err = Load(writeConfig(t, "stages:\n  enrich: extract\n"))
	assert.ErrorContains(t, err, "three distinct steps")

	_, err = Load(writeConfig(t, "statuses:\n  success: [done]\n  failure: [done]\n"))
	assert.ErrorContains(t, err, `status "done" is listed as both`)

	_, err = Load(writeConfig(t, "statuses:\n  success: [Passed]\n  failure: [passed]\n"))
	assert.ErrorContains(t, err, `status "Passed" is listed as both`)
}

func TestValidateForIntrospect(t *testing.T) {
	tests := []struct {
		name string
		conn Connection
		want string
	}{
		{name: "missing host", conn: Connection{Database: "d", User: "u"}, want: "connection.host"},
		{name: "missing database", conn: Connection{Host: "h", User: "u"}, want: "connection.database"},
		{name: "missing user", conn: Connection{Host: "h", Database: "d"}, want: "connection.user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Connection: tt.conn}
			assert.ErrorContains(t, cfg.ValidateForIntrospect(), tt.want)
		})
	}
}
