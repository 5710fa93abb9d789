package catalogs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogOrder(t *testing.T) {
	c := Default()
	require.Equal(t, 13, c.Len())
	ids := c.IDs()
	assert.Equal(t, "ai", ids[0])
	assert.Equal(t, "agents", ids[len(ids)-1])
	assert.Equal(t, 1, c.Order("sim"))
	assert.Equal(t, -1, c.Order("nope"))

	d, ok := c.Get("ai")
	require.True(t, ok)
	assert.Equal(t, "Artificial Intelligence", d.Name)
	assert.Equal(t, "#39ff14", d.Color.Hex())
	assert.Equal(t, SupplyResource, d.Supply)
	assert.NotEmpty(t, c.Digest)
}

func TestAllReturnsCopy(t *testing.T) {
	c := Default()
	all := c.All()
	all[0].Name = "mutated"
	d, _ := c.Get("ai")
	assert.Equal(t, "Artificial Intelligence", d.Name)
}

func TestLoadFromConfigDir(t *testing.T) {
	dir := t.TempDir()
	raw := `[
	  {"id":"ai","name":"Artificial Intelligence","color":"#39ff14"},
	  {"id":"sim","name":"Simulation","description":"Physics engines.","color":"#00F3FF","supply":"resource"}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(raw), 0o644))

	c, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"ai", "sim"}, c.IDs())
	d, ok := c.Get("sim")
	require.True(t, ok)
	assert.Equal(t, RGB{0x00, 0xf3, 0xff}, d.Color)
	assert.Len(t, c.Digest, 64)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":       `[]`,
		"empty id":    `[{"id":" ","color":"#000000"}]`,
		"duplicate":   `[{"id":"a","color":"#000000"},{"id":"a","color":"#000000"}]`,
		"bad color":   `[{"id":"a","color":"green"}]`,
		"bad supply":  `[{"id":"a","color":"#000000","supply":"placed"}]`,
		"not a array": `{"id":"a"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestRGBRoundTripJSON(t *testing.T) {
	c, err := ParseRGB("#FF4D00")
	require.NoError(t, err)
	b, err := c.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"#ff4d00"`, string(b))
}

func TestRepoConfigMatchesDefault(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "configs"))
	require.NoError(t, err)
	assert.Equal(t, Default().All(), c.All())
}
