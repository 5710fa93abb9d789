package inventory

import (
	"sort"

	"voxelyard.dev/internal/sim/catalogs"
	"voxelyard.dev/internal/sim/geom"
	"voxelyard.dev/internal/sim/ids"
)

// ShelfLayout positions the seeded resource blocks. Catalog entry i goes to
// column i%Columns and row i/Columns; copy c of it is offset by c*CopyStep.
type ShelfLayout struct {
	Copies   int
	Columns  int
	Origin   geom.Cell
	CopyStep geom.Cell
	RowStep  geom.Cell
	ColStep  geom.Cell
}

func scale(c geom.Cell, n int) geom.Cell {
	return geom.Cell{X: c.X * n, Y: c.Y * n, Z: c.Z * n}
}

func SeedShelf(cat *catalogs.BlockCatalog, l ShelfLayout) []ResourceBlock {
	cols := l.Columns
	if cols <= 0 {
		cols = 1
	}
	out := make([]ResourceBlock, 0, cat.Len()*l.Copies)
	for i, def := range cat.All() {
		base := l.Origin.Add(scale(l.RowStep, i/cols)).Add(scale(l.ColStep, i%cols))
		for c := 0; c < l.Copies; c++ {
			out = append(out, ResourceBlock{
				InstanceID: ids.ResourceID(def.ID, c),
				TypeID:     def.ID,
				Cell:       base.Add(scale(l.CopyStep, c)),
			})
		}
	}
	return out
}

// Supply is the finite shelf pool. Blocks leave it on pickup and never return.
type Supply struct {
	blocks    map[string]ResourceBlock
	remaining map[string]int
}

func NewSupply(blocks []ResourceBlock) *Supply {
	s := &Supply{
		blocks:    make(map[string]ResourceBlock, len(blocks)),
		remaining: map[string]int{},
	}
	for _, b := range blocks {
		s.blocks[b.InstanceID] = b
		s.remaining[b.TypeID]++
	}
	return s
}

func (s *Supply) Len() int { return len(s.blocks) }

func (s *Supply) Get(id string) (ResourceBlock, bool) {
	b, ok := s.blocks[id]
	return b, ok
}

func (s *Supply) Take(id string) (ResourceBlock, error) {
	b, ok := s.blocks[id]
	if !ok {
		return ResourceBlock{}, ErrNotOnShelf
	}
	delete(s.blocks, id)
	s.remaining[b.TypeID]--
	if s.remaining[b.TypeID] == 0 {
		delete(s.remaining, b.TypeID)
	}
	return b, nil
}

func (s *Supply) Remaining(typeID string) int { return s.remaining[typeID] }

// Counts returns remaining copies per type. Exhausted types are absent.
func (s *Supply) Counts() map[string]int {
	out := make(map[string]int, len(s.remaining))
	for k, v := range s.remaining {
		out[k] = v
	}
	return out
}

func (s *Supply) Blocks() []ResourceBlock {
	out := make([]ResourceBlock, 0, len(s.blocks))
	for _, b := range s.blocks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceID < out[j].InstanceID })
	return out
}
