package db

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN(Config{
		Host:     "db.example",
		Port:     "3307",
		User:     "dpm",
		Password: "p@ss:word",
		Database: "dpm",
	})

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "dpm", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.example:3307", parsed.Addr)
	assert.Equal(t, "dpm", parsed.DBName)
	assert.True(t, parsed.ParseTime)
}
