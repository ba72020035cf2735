package sql

import (
	"os"
	"testing"

	"github.com/siherrmann/biolink/helper"
)

var dbPort string

func TestMain(m *testing.M) {
	os.Exit(helper.RunWithPostgres(m, &dbPort))
}

func initDB(t *testing.T) *helper.Database {
	return helper.InitTestDatabase(t, dbPort, Init)
}
