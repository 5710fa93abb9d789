// Package spatial maps grid cells to the block occupying them. Resource and
// placed blocks share one index so a cell can never hold both.
package spatial

import (
	"errors"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"voxelyard.dev/internal/sim/geom"
)

var (
	ErrOccupiedCell = errors.New("spatial: cell occupied")
	ErrNotFound     = errors.New("spatial: instance not found")
	ErrDuplicateID  = errors.New("spatial: duplicate instance id")
)

type Origin uint8

const (
	OriginResource Origin = iota + 1
	OriginPlaced
)

func (o Origin) String() string {
	switch o {
	case OriginResource:
		return "resource"
	case OriginPlaced:
		return "placed"
	default:
		return "unknown"
	}
}

type Instance struct {
	ID     string
	TypeID string
	Cell   geom.Cell
	Origin Origin
}

type Index struct {
	byCell map[geom.Cell]Instance
	byID   map[string]geom.Cell
}

func New() *Index {
	return &Index{
		byCell: map[geom.Cell]Instance{},
		byID:   map[string]geom.Cell{},
	}
}

func (x *Index) Len() int { return len(x.byCell) }

func (x *Index) Insert(in Instance) error {
	if _, ok := x.byCell[in.Cell]; ok {
		return ErrOccupiedCell
	}
	if _, ok := x.byID[in.ID]; ok {
		return ErrDuplicateID
	}
	x.byCell[in.Cell] = in
	x.byID[in.ID] = in.Cell
	return nil
}

func (x *Index) Remove(id string) (Instance, error) {
	c, ok := x.byID[id]
	if !ok {
		return Instance{}, ErrNotFound
	}
	in := x.byCell[c]
	delete(x.byCell, c)
	delete(x.byID, id)
	return in, nil
}

func (x *Index) Lookup(c geom.Cell) (Instance, bool) {
	in, ok := x.byCell[c]
	return in, ok
}

func (x *Index) Occupied(c geom.Cell) bool {
	_, ok := x.byCell[c]
	return ok
}

func (x *Index) Get(id string) (Instance, bool) {
	c, ok := x.byID[id]
	if !ok {
		return Instance{}, false
	}
	return x.byCell[c], true
}

// Near returns the instance whose cell centre lies within radius of p. Only
// the cell containing p and its 26 neighbours are probed, so radius is
// expected to be below one cell.
func (x *Index) Near(p mgl64.Vec3, radius float64) (Instance, bool) {
	base := geom.CellAt(p)
	best := Instance{}
	bestD := radius
	found := false
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				in, ok := x.byCell[base.Add(geom.Cell{X: dx, Y: dy, Z: dz})]
				if !ok {
					continue
				}
				d := in.Cell.Center().Sub(p).Len()
				if d <= bestD {
					best, bestD, found = in, d, true
				}
			}
		}
	}
	return best, found
}

// All returns every instance sorted by id, which keeps snapshots and digests
// independent of map iteration order.
func (x *Index) All() []Instance {
	out := make([]Instance, 0, len(x.byCell))
	for _, in := range x.byCell {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (x *Index) ByOrigin(o Origin) []Instance {
	out := make([]Instance, 0, len(x.byCell))
	for _, in := range x.byCell {
		if in.Origin == o {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
