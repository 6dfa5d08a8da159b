package geo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	g := New()

	t.Run("exact match", func(t *testing.T) {
		zips := g.Zips("Austin", "TX")
		assert.Equal(t, []string{"78701", "78702", "78704", "78705"}, zips)
	})

	t.Run("case insensitive", func(t *testing.T) {
		assert.NotEmpty(t, g.Zips("austin", "tx"))
		assert.NotEmpty(t, g.Zips("MIAMI", "fl"))
	})

	t.Run("alias resolves to canonical record", func(t *testing.T) {
		assert.Equal(t, g.Zips("New York", "NY"), g.Zips("NYC", "NY"))
	})

	t.Run("unknown city", func(t *testing.T) {
		assert.Nil(t, g.Zips("Nowhere", "KS"))
	})
}

func TestPrimaryZips(t *testing.T) {
	g := New(CityInfo{
		City:  "Bigtown",
		State: "TX",
		ZipCodes: []string{
			"70001", "70002", "70003", "70004", "70005", "70006", "70007",
		},
	})

	assert.Len(t, g.PrimaryZips("Bigtown", "TX"), primaryZipCount)
	assert.Equal(t, []string{"70001", "70002", "70003", "70004", "70005"},
		g.PrimaryZips("Bigtown", "TX"))

	// Short lists pass through untruncated.
	assert.Equal(t, g.Zips("Austin", "TX"), g.PrimaryZips("Austin", "TX"))
}

func TestCities(t *testing.T) {
	g := New()
	cities := g.Cities()

	loc, ok := cities["austin"]
	require.True(t, ok)
	assert.Equal(t, "Austin", loc.City)
	assert.Equal(t, "TX", loc.State)

	// Aliases appear alongside canonical names, both resolving to the
	// canonical city.
	alias, ok := cities["nyc"]
	require.True(t, ok)
	assert.Equal(t, "New York", alias.City)
	assert.Equal(t, "NY", alias.State)
}

func TestLoadFile(t *testing.T) {
	data := `{
		"metadata": {"title": "test mapping", "version": "1"},
		"records": [
			{"city": "Roanoke", "state": "VA", "zip_codes": ["24011", "24012"]},
			{"city": "Austin", "state": "TX", "zip_codes": ["78700"]},
			{"city": "", "state": "XX", "zip_codes": ["00000"]}
		]
	}`
	path := filepath.Join(t.TempDir(), "city2zip.json")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	g := New()
	require.NoError(t, g.LoadFile(path))

	// New record added.
	assert.Equal(t, []string{"24011", "24012"}, g.Zips("Roanoke", "VA"))
	// File record overrides the built-in one.
	assert.Equal(t, []string{"78700"}, g.Zips("Austin", "TX"))
}

func TestLoadFileErrors(t *testing.T) {
	g := New()

	assert.Error(t, g.LoadFile(filepath.Join(t.TempDir(), "missing.json")))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o644))
	assert.Error(t, g.LoadFile(bad))

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"metadata":{},"records":[]}`), 0o644))
	assert.Error(t, g.LoadFile(empty))
}
