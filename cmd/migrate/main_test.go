package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitDDLStatements(t *testing.T) {
	content := `-- header comment
CREATE TABLE a (
  id INT64 NOT NULL,
) PRIMARY KEY (id);

  -- indented comment
CREATE INDEX a_by_id ON a(id);
`

	assert.Equal(t, []string{
		"CREATE TABLE a (\nid INT64 NOT NULL,\n) PRIMARY KEY (id)",
		"CREATE INDEX a_by_id ON a(id)",
	}, splitDDLStatements(content))

	assert.Empty(t, splitDDLStatements("-- nothing here\n\n"))
}

func TestRepositoryMigrationsParse(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	total := 0
	for _, file := range files {
		content, err := os.ReadFile(file)
		require.NoError(t, err)

		statements := splitDDLStatements(string(content))
		assert.NotEmpty(t, statements, file)
		total += len(statements)
	}
	assert.Equal(t, 5, total)
}

func TestConfigPaths(t *testing.T) {
	cfg := config{projectID: "p", instanceID: "i", databaseID: "d"}

	assert.Equal(t, "projects/p/instances/i", cfg.instancePath())
	assert.Equal(t, "projects/p/instances/i/databases/d", cfg.databasePath())
}
