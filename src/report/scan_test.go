package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volume-reconcile/src/inventory"
)

func TestWriteAndParseScanRoundTrip(t *testing.T) {
	objects := []inventory.StorageObject{
		{ID: "ds1:web-data", UID: "4200-abcd", Name: "web-data", Datastore: "ds1", CapacityGB: 20, BackingPath: "[ds1] web-data.vmdk"},
		{ID: "ds2:logs", Name: "logs", Datastore: "ds2", CapacityGB: 5, BackingPath: "[ds2] logs.vmdk"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteScan(&buf, objects))

	parsed, err := ParseScan(&buf)
	require.NoError(t, err)
	assert.Equal(t, objects, parsed)
}

func TestParseScanToleratesMissingOptionalFields(t *testing.T) {
	in := strings.Join([]string{
		"Name: web-data",
		"Datastore: ds1",
		"---",
		"ID: ds2:logs",
		"Filename: [ds2] logs.vmdk",
		"---",
	}, "\n")

	parsed, err := ParseScan(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	// ID derived from Datastore+Name.
	assert.Equal(t, "ds1:web-data", parsed[0].ID)
	assert.Zero(t, parsed[0].CapacityGB)

	// Datastore derived from the ID prefix.
	assert.Equal(t, "ds2", parsed[1].Datastore)
	assert.Equal(t, "[ds2] logs.vmdk", parsed[1].BackingPath)
}

func TestParseScanToleratesSentinelAndBlankLines(t *testing.T) {
	parsed, err := ParseScan(strings.NewReader("No storage objects found.\n"))
	require.NoError(t, err)
	assert.Empty(t, parsed)

	in := "\nName: a\nDatastore: ds1\n\n---\nNo storage objects found.\n"
	parsed, err = ParseScan(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, "ds1:a", parsed[0].ID)
}

func TestParseScanFinalBlockWithoutSeparator(t *testing.T) {
	parsed, err := ParseScan(strings.NewReader("ID: ds1:a\nName: a"))
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, "ds1:a", parsed[0].ID)
}

func TestParseScanRejectsUnidentifiableBlock(t *testing.T) {
	_, err := ParseScan(strings.NewReader("Name: nameless\n---\n"))
	require.Error(t, err)
}

func TestParseScanRejectsBadCapacity(t *testing.T) {
	_, err := ParseScan(strings.NewReader("ID: ds1:a\nCapacityGB: many\n---\n"))
	require.Error(t, err)
}

func TestWriteScanEmptyWritesSentinel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScan(&buf, nil))
	assert.Equal(t, "No storage objects found.\n", buf.String())
}
