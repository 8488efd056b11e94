package util_test

import (
	"testing"

	"github.com/pulsegrid/sentinel/util"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestValidateFile(t *testing.T) {
	afs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(afs, "/config.hjson", []byte("{}"), 0644))
	require.NoError(t, afero.WriteFile(afs, "/empty.hjson", []byte(""), 0644))
	require.NoError(t, afs.MkdirAll("/adir", 0755))

	require.NoError(t, util.ValidateFile(afs, "/config.hjson"))
	require.ErrorIs(t, util.ValidateFile(afs, "/missing.hjson"), util.ErrFileDoesNotExist)
	require.ErrorIs(t, util.ValidateFile(afs, "/empty.hjson"), util.ErrFileIsEmtpy)
	require.ErrorIs(t, util.ValidateFile(afs, "/adir"), util.ErrPathIsDir)
}

func TestValidateDirectory(t *testing.T) {
	afs := afero.NewMemMapFs()
	require.NoError(t, afs.MkdirAll("/empty", 0755))
	require.NoError(t, afero.WriteFile(afs, "/full/a.txt", []byte("x"), 0644))

	require.ErrorIs(t, util.ValidateDirectory(afs, "/empty"), util.ErrDirIsEmpty)
	require.NoError(t, util.ValidateDirectory(afs, "/full"))
	require.ErrorIs(t, util.ValidateDirectory(afs, "/missing"), util.ErrDirDoesNotExist)
}

func TestParseRelativePath(t *testing.T) {
	p, err := util.ParseRelativePath("./config.hjson")
	require.NoError(t, err)
	require.Contains(t, p, "config.hjson")

	_, err = util.ParseRelativePath("")
	require.ErrorIs(t, err, util.ErrInvalidPath)
}
