// Package interact resolves what the player is aiming at. Given an aim ray and
// the solids of the current tick it reports the nearest hovered target and the
// grid cell a held block would be placed into.
package interact

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelyard.dev/internal/sim/geom"
)

const DefaultMaxRange = 100.0

// tieEps treats two hits as equidistant.
const tieEps = 1e-9

type Kind uint8

const (
	KindResource Kind = iota + 1
	KindPlaced
	KindEnvironment
)

func (k Kind) String() string {
	switch k {
	case KindResource:
		return "RESOURCE"
	case KindPlaced:
		return "PLACED"
	case KindEnvironment:
		return "ENVIRONMENT"
	default:
		return "NONE"
	}
}

// Layer tags a solid. Hand and preview geometry is carried so renderers and
// tests can see it, but it never takes part in hit testing.
type Layer uint8

const (
	LayerShell Layer = iota + 1
	LayerResource
	LayerPlaced
	LayerHand
	LayerPreview
)

func (l Layer) collides() bool {
	switch l {
	case LayerShell, LayerResource, LayerPlaced:
		return true
	default:
		return false
	}
}

// rank breaks distance ties: resource before placed before environment.
func (l Layer) rank() int {
	switch l {
	case LayerResource:
		return 0
	case LayerPlaced:
		return 1
	default:
		return 2
	}
}

type Solid struct {
	Layer      Layer
	Box        geom.AABB
	InstanceID string
	TypeID     string
	Cell       geom.Cell
}

func BlockSolid(layer Layer, instanceID, typeID string, c geom.Cell) Solid {
	return Solid{Layer: layer, Box: c.Box(), InstanceID: instanceID, TypeID: typeID, Cell: c}
}

// Target is the hovered surface. PlacementCell is only meaningful when
// HasPlacement is set.
type Target struct {
	Kind       Kind
	TypeID     string
	InstanceID string
	BlockCell  geom.Cell

	Point     mgl64.Vec3
	Distance  float64
	Normal    mgl64.Vec3
	HasNormal bool

	PlacementCell geom.Cell
	HasPlacement  bool
}

type Resolver struct {
	MaxRange float64
}

func NewResolver(maxRange float64) Resolver {
	if maxRange <= 0 {
		maxRange = DefaultMaxRange
	}
	return Resolver{MaxRange: maxRange}
}

// Resolve casts the ray against every colliding solid and classifies the
// nearest hit. It reports false when nothing is hit within range, or when the
// only hit is an environment surface without a usable normal.
func (r Resolver) Resolve(ray geom.Ray, solids []Solid) (Target, bool) {
	var (
		best     geom.Hit
		bestS    Solid
		found    bool
		maxRange = r.MaxRange
	)
	if maxRange <= 0 {
		maxRange = DefaultMaxRange
	}
	for _, s := range solids {
		if !s.Layer.collides() {
			continue
		}
		var (
			h  geom.Hit
			ok bool
		)
		if s.Layer == LayerShell {
			h, ok = ray.ExitBox(s.Box)
		} else {
			h, ok = ray.EnterBox(s.Box)
		}
		if !ok || h.Distance >= maxRange {
			continue
		}
		if found {
			d := h.Distance - best.Distance
			if d > tieEps || (math.Abs(d) <= tieEps && s.Layer.rank() >= bestS.Layer.rank()) {
				continue
			}
		}
		best, bestS, found = h, s, true
	}
	if !found {
		return Target{}, false
	}
	return classify(best, bestS)
}

func classify(h geom.Hit, s Solid) (Target, bool) {
	t := Target{
		Point:     h.Point,
		Distance:  h.Distance,
		Normal:    h.Normal,
		HasNormal: h.HasNormal,
	}
	switch s.Layer {
	case LayerResource, LayerPlaced:
		t.Kind = KindResource
		if s.Layer == LayerPlaced {
			t.Kind = KindPlaced
		}
		t.TypeID = s.TypeID
		t.InstanceID = s.InstanceID
		t.BlockCell = s.Cell
		if h.HasNormal {
			t.PlacementCell = s.Cell.Add(h.Face)
			t.HasPlacement = true
		}
		return t, true
	case LayerShell:
		if !h.HasNormal {
			return Target{}, false
		}
		t.Kind = KindEnvironment
		t.PlacementCell = geom.CellAt(h.Point.Add(h.Normal.Mul(0.5)))
		t.HasPlacement = true
		return t, true
	default:
		return Target{}, false
	}
}
