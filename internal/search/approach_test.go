package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-discovery/internal/model"
)

func writeApproaches(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "approaches.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadApproaches(t *testing.T) {
	path := writeApproaches(t, `
approaches:
  - id: default
    description: full waterfall
    subsearches:
      apollo_search: true
      contact_enrichment: true
      hunter_search: true
  - id: cheap
    subsearches:
      apollo_search: true
      hunter_search: false
`)

	approaches, err := LoadApproaches(path)
	require.NoError(t, err)
	require.Len(t, approaches, 2)

	def := approaches["default"]
	assert.True(t, def.Enabled(model.TagApolloSearch))
	assert.True(t, def.Enabled(model.TagHunterSearch))

	cheap := approaches["cheap"]
	assert.True(t, cheap.Enabled(model.TagApolloSearch))
	assert.False(t, cheap.Enabled(model.TagHunterSearch))
	assert.False(t, cheap.Enabled(model.TagContactEnrichment), "unlisted searches are off")
}

func TestLoadApproaches_UnknownSearchID(t *testing.T) {
	path := writeApproaches(t, `
approaches:
  - id: broken
    subsearches:
      linkedin_scrape: true
`)

	_, err := LoadApproaches(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown search id")
	assert.Contains(t, err.Error(), "linkedin_scrape")
}

func TestLoadApproaches_DuplicateID(t *testing.T) {
	path := writeApproaches(t, `
approaches:
  - id: dup
  - id: dup
`)

	_, err := LoadApproaches(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate approach id")
}

func TestDefaultApproach_PermitsEverything(t *testing.T) {
	a := DefaultApproach()
	assert.True(t, a.Enabled(model.TagApolloSearch))
	assert.True(t, a.Enabled(model.TagComprehensiveSearch))
}
