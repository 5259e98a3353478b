package constants

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTaxonomy(t *testing.T) {
	sectors := DefaultTaxonomy()
	require.Len(t, sectors, 8)
	for _, s := range sectors {
		assert.NotEmpty(t, s.Name)
		assert.NotEmpty(t, s.SubCategories, "sector %q has no sub-categories", s.Name)
	}

	// Callers mutate their copy freely; the package default must not change.
	sectors[0].Name = "mutated"
	assert.NotEqual(t, "mutated", DefaultTaxonomy()[0].Name)
}

func TestLoadTaxonomy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	yaml := `
- sector: Fisheries
  sub_categories:
    - Pond Culture
    - Hatcheries
- sector: Tourism
  sub_categories:
    - Homestays
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	sectors, err := LoadTaxonomy(path)
	require.NoError(t, err)
	require.Len(t, sectors, 2)
	assert.Equal(t, "Fisheries", sectors[0].Name)
	assert.Equal(t, []string{"Pond Culture", "Hatcheries"}, sectors[0].SubCategories)
}

func TestLoadTaxonomyErrors(t *testing.T) {
	_, err := LoadTaxonomy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))
	_, err = LoadTaxonomy(path)
	assert.Error(t, err)
}

func TestSubCategoryNames(t *testing.T) {
	names := SubCategoryNames([]Sector{
		{Name: "A", SubCategories: []string{"x", "y"}},
		{Name: "B", SubCategories: []string{"z"}},
	})
	assert.Equal(t, []string{"x", "y", "z"}, names)
}
