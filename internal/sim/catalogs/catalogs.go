package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SupplyResource marks a block type that is seeded onto the shelf at world start.
const SupplyResource = "resource"

// RGB is a 24-bit colour, encoded on the wire as "#rrggbb".
type RGB struct {
	R uint8
	G uint8
	B uint8
}

func ParseRGB(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("color %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGB) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

func (c *RGB) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseRGB(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

type BlockDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       RGB    `json:"color"`
	Supply      string `json:"supply"`
}

// BlockCatalog is the fixed, ordered registry of block types. It is built once
// and shared read-only; nothing mutates it after Load/Parse returns.
type BlockCatalog struct {
	defs   []BlockDef
	index  map[string]int
	Digest string
}

func Load(configDir string) (*BlockCatalog, error) {
	raw, err := os.ReadFile(filepath.Join(configDir, "blocks.json"))
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*BlockCatalog, error) {
	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	c, err := build(defs)
	if err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	c.Digest = sha256Hex(raw)
	return c, nil
}

func build(defs []BlockDef) (*BlockCatalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("empty catalog")
	}
	c := &BlockCatalog{
		defs:  make([]BlockDef, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" {
			return nil, fmt.Errorf("empty id")
		}
		if _, dup := c.index[d.ID]; dup {
			return nil, fmt.Errorf("duplicate id %q", d.ID)
		}
		if d.Name == "" {
			d.Name = d.ID
		}
		if d.Supply == "" {
			d.Supply = SupplyResource
		}
		if d.Supply != SupplyResource {
			return nil, fmt.Errorf("block %q: unknown supply %q", d.ID, d.Supply)
		}
		c.index[d.ID] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	return c, nil
}

func (c *BlockCatalog) Len() int { return len(c.defs) }

func (c *BlockCatalog) Get(id string) (BlockDef, bool) {
	i, ok := c.index[id]
	if !ok {
		return BlockDef{}, false
	}
	return c.defs[i], true
}

// Order returns the catalog position of id, or -1.
func (c *BlockCatalog) Order(id string) int {
	i, ok := c.index[id]
	if !ok {
		return -1
	}
	return i
}

// All returns a copy of the definitions in catalog order.
func (c *BlockCatalog) All() []BlockDef {
	out := make([]BlockDef, len(c.defs))
	copy(out, c.defs)
	return out
}

func (c *BlockCatalog) IDs() []string {
	out := make([]string, len(c.defs))
	for i, d := range c.defs {
		out[i] = d.ID
	}
	return out
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
