package db

import (
	"io/fs"
	"testing"

	"github.com/shinyyama/skillswap-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	base := config.Config{DBDriver: config.DriverMySQL, DBUser: "app", DBPassword: "pw", DBName: "skillswap", DBPort: "3306"}

	tests := []struct {
		name   string
		mutate func(c *config.Config)
		want   string
	}{
		{
			name:   "plain host",
			mutate: func(c *config.Config) { c.DBHost = "db.local" },
			want:   "app:pw@tcp(db.local:3306)/skillswap?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name:   "qualified tcp",
			mutate: func(c *config.Config) { c.DBHost = "tcp(10.0.0.1:3307)" },
			want:   "app:pw@tcp(10.0.0.1:3307)/skillswap?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name:   "socket path",
			mutate: func(c *config.Config) { c.DBHost = "/var/run/mysqld.sock" },
			want:   "app:pw@unix(/var/run/mysqld.sock)/skillswap?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name: "cloud sql instance",
			mutate: func(c *config.Config) {
				c.DBHost = "ignored"
				c.InstanceConnectionName = "proj:region:inst"
			},
			want: "app:pw@unix(/cloudsql/proj:region:inst)/skillswap?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name: "postgres",
			mutate: func(c *config.Config) {
				c.DBDriver = config.DriverPostgres
				c.DBHost = "pg.local"
				c.DBPort = "5432"
				c.DBSSLMode = "require"
			},
			want: "host=pg.local user=app password=pw dbname=skillswap port=5432 sslmode=require TimeZone=UTC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Equal(t, tt.want, BuildDSN(&cfg))
		})
	}
}

func TestEmbeddedMigrationsPerDialect(t *testing.T) {
	for _, dir := range []string{"migrations/mysql", "migrations/postgres"} {
		entries, err := fs.ReadDir(migrationsFS, dir)
		require.NoError(t, err)
		assert.NotEmpty(t, entries, dir)
	}
}
