package database

import (
	"testing"

	"go-inventory-pos/internal/config"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     "3306",
		User:     "pos",
		Password: "s3cret",
		Name:     "inventory",
		TimeZone: "UTC",
	})

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "pos", parsed.User)
	assert.Equal(t, "db.internal:3306", parsed.Addr)
	assert.Equal(t, "inventory", parsed.DBName)
	assert.True(t, parsed.ParseTime)
}

func TestMySQLDSN_PrefersURL(t *testing.T) {
	url := "pos:pw@tcp(localhost:3306)/inventory?parseTime=true"
	assert.Equal(t, url, MySQLDSN(config.DatabaseConfig{URL: url}))
}

func TestDialector(t *testing.T) {
	d, err := Dialector(config.DatabaseConfig{Driver: "postgres", URL: "postgres://localhost/inventory"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = Dialector(config.DatabaseConfig{Driver: "MySQL", Host: "localhost", Port: "3306"})
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	_, err = Dialector(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, parseLogLevel("silent"))
	assert.Equal(t, logger.Info, parseLogLevel("INFO"))
	assert.Equal(t, logger.Warn, parseLogLevel("bogus"))
}
