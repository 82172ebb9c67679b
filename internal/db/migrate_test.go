package db

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivecast/ingestd/internal/config"
	migrations "github.com/hivecast/ingestd/db"
)

func TestRunMigrateRejectsBadCommands(t *testing.T) {
	cfg := config.Default().Postgres
	cases := []struct {
		command string
		args    []string
	}{
		{"invalid", nil},
		{"force", nil},
		{"force", []string{"x"}},
		{"steps", nil},
	}
	for _, tc := range cases {
		err := RunMigrate(nil, cfg, nil, tc.command, tc.args)
		assert.Error(t, err, tc.command)
	}
}

func TestCheckMigrateCommand(t *testing.T) {
	assert.NoError(t, checkMigrateCommand("up", nil))
	assert.NoError(t, checkMigrateCommand("version", nil))
	assert.NoError(t, checkMigrateCommand("steps", []string{"-1"}))
	assert.NoError(t, checkMigrateCommand("force", []string{"1"}))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	fsys, err := migrations.Migrations()
	require.NoError(t, err)

	ups, err := fs.Glob(fsys, "*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(fsys, "*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}
