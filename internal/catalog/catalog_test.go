package catalog

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardSchema = `{
  "type": "object",
  "properties": {
    "title": {"type": "string"}
  },
  "required": ["title"]
}`

func TestLoadFromFilesystem(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/catalog/Card.schema.json", []byte(cardSchema), 0o644))
	require.NoError(t, util.WriteFile(fs, "/catalog/Text.schema.json", []byte(`{"type":"object"}`), 0o644))
	require.NoError(t, util.WriteFile(fs, "/catalog/README.md", []byte("not a schema"), 0o644))

	c, err := Load(fs, "/catalog")
	require.NoError(t, err)

	assert.True(t, c.IsKnownType("Card"))
	assert.True(t, c.IsKnownType("Text"))
	assert.False(t, c.IsKnownType("README"))
	assert.False(t, c.IsKnownType("Carousel"))
	assert.ElementsMatch(t, []string{"Card", "Text"}, c.Types())
}

func TestLoad_BadSchemaFails(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/catalog/Bad.schema.json", []byte(`{"type": 7}`), 0o644))

	_, err := Load(fs, "/catalog")
	assert.Error(t, err)
}

func TestValidateProps(t *testing.T) {
	c, err := New(map[string]string{"Card": cardSchema, "Text": ""})
	require.NoError(t, err)

	assert.NoError(t, c.ValidateProps("Card", map[string]any{"title": "X"}))
	assert.Error(t, c.ValidateProps("Card", map[string]any{"title": 7}), "wrong prop type")
	assert.Error(t, c.ValidateProps("Card", nil), "missing required prop")
	assert.NoError(t, c.ValidateProps("Text", map[string]any{"anything": true}), "schemaless type accepts all props")
	assert.Error(t, c.ValidateProps("Carousel", nil), "unknown type")
}

func TestNilCatalogKnowsEverything(t *testing.T) {
	var c *Catalog
	assert.True(t, c.IsKnownType("Whatever"))
	assert.NoError(t, c.ValidateProps("Whatever", nil))
	assert.Nil(t, c.Types())
}
