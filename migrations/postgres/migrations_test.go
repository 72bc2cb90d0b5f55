package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsDiscovered(t *testing.T) {
	require.Len(t, Migrations.Sorted(), 2)

	ups, err := fs.Glob(FS, "*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(FS, "*.down.sql")
	require.NoError(t, err)
	require.Len(t, downs, len(ups))
}
