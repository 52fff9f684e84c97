package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("# local overrides\nSCALASTYLE_MARKER_COMMAND=sbt -batch scalastyle\n"), 0644))

	t.Setenv(KeyCommand, "")
	assert.Equal(t, "sbt -batch scalastyle", Lookup(envPath, KeyCommand))

	t.Setenv(KeyCommand, "mill __.scalastyle")
	assert.Equal(t, "mill __.scalastyle", Lookup(envPath, KeyCommand), "process env wins")

	assert.Equal(t, "", Lookup(envPath, KeyReportFile))
}

func TestLoadKeyFromEnvFile_Missing(t *testing.T) {
	assert.Equal(t, "", LoadKeyFromEnvFile(filepath.Join(t.TempDir(), "nope.env"), KeyCommand))
}

func TestSaveKeyToEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".scalastyle-marker", ".env")

	require.NoError(t, SaveKeyToEnvFile(envPath, KeyCommand, "sbt scalastyle"))
	require.NoError(t, SaveKeyToEnvFile(envPath, KeyReportFile, "target/out.xml"))
	require.NoError(t, SaveKeyToEnvFile(envPath, KeyCommand, "sbt test:scalastyle"))

	assert.Equal(t, "sbt test:scalastyle", LoadKeyFromEnvFile(envPath, KeyCommand))
	assert.Equal(t, "target/out.xml", LoadKeyFromEnvFile(envPath, KeyReportFile))
}
