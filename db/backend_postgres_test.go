package db

import (
	"os"
	"testing"
)

// Set WIKIGRAPH_TEST_POSTGRES to a connection string to run these.
func postgresTestConfig(t *testing.T) *PostgresConfig {
	t.Helper()
	connString := os.Getenv("WIKIGRAPH_TEST_POSTGRES")
	if connString == "" {
		t.Skip("WIKIGRAPH_TEST_POSTGRES not set")
	}
	return NewPostgresConfig(connString)
}

func TestPostgresBackend(t *testing.T) {
	config := postgresTestConfig(t)

	if err := WithBackend(config, func(be Backend) error {
		testBackend(t, be)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresRelationName(t *testing.T) {
	if expected, actual := `"local_page_titles"`, relation(TableLocalPageTitles); actual != expected {
		t.Errorf("Expected relation=%v but actual=%v", expected, actual)
	}
}
