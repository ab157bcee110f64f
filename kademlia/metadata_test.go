package kademlia

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp switches the working directory to a fresh temp dir for the
// duration of the test, since metadata files are written relative to cwd.
func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadOrCreateMetadata_FirstRunRequiresPort(t *testing.T) {
	chdirTemp(t)
	_, err := LoadOrCreateMetadata("node-a", 0, "", 0)
	assert.Error(t, err)
}

func TestLoadOrCreateMetadata_CreatesOnFirstRun(t *testing.T) {
	chdirTemp(t)
	md, err := LoadOrCreateMetadata("node-b", 9001, "1.2.3.4", 9000)
	require.NoError(t, err)
	assert.Equal(t, "node-b", md.Name)
	assert.Equal(t, 9001, md.Port)
	assert.NotEmpty(t, md.NodeID)
	assert.Equal(t, "1.2.3.4", md.BootstrapIP)
}

func TestLoadOrCreateMetadata_ReloadKeepsNodeID(t *testing.T) {
	chdirTemp(t)
	first, err := LoadOrCreateMetadata("node-c", 9001, "", 0)
	require.NoError(t, err)

	second, err := LoadOrCreateMetadata("node-c", 0, "", 0)
	require.NoError(t, err)

	assert.Equal(t, first.NodeID, second.NodeID)
	assert.Equal(t, 9001, second.Port, "zero port on reload keeps the file's port")
}

func TestLoadOrCreateMetadata_PortOverrideIsPersisted(t *testing.T) {
	chdirTemp(t)
	first, err := LoadOrCreateMetadata("node-d", 9001, "", 0)
	require.NoError(t, err)

	second, err := LoadOrCreateMetadata("node-d", 9999, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 9999, second.Port)
	assert.Equal(t, first.NodeID, second.NodeID)

	third, err := LoadOrCreateMetadata("node-d", 0, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 9999, third.Port, "override must be persisted to disk")
}

func TestMetadataPath_Sanitizes(t *testing.T) {
	assert.Equal(t, "my_node_1", metadataPath("my node!1"))
}
