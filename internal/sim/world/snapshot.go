package world

import (
	"voxelyard.dev/internal/sim/geom"
	"voxelyard.dev/internal/sim/interact"
	"voxelyard.dev/internal/sim/inventory"
)

const (
	HintPickUp    = "PICK UP"
	HintPlaceHere = "PLACE HERE"
)

// Snapshot is the read-only view handed to renderers after each tick. It
// shares no memory with the world.
type Snapshot struct {
	Tick      uint64                    `json:"tick"`
	Player    PlayerView                `json:"player"`
	Held      string                    `json:"held,omitempty"`
	Resources []inventory.ResourceBlock `json:"resources"`
	Placed    []inventory.PlacedBlock   `json:"placed"`
	Supply    map[string]int            `json:"supply"`
	Hover     *HoverView                `json:"hover,omitempty"`
	// Preview is the ghost cell for the held block, set only when a place
	// action would be attempted there.
	Preview *geom.Cell `json:"preview,omitempty"`
	Result  *Result    `json:"result,omitempty"`
	Digest  string     `json:"digest"`
}

type PlayerView struct {
	Position [3]float64 `json:"pos"`
	Velocity [3]float64 `json:"vel"`
	View     [3]float64 `json:"view"`
	Yaw      float64    `json:"yaw"`
	Pitch    float64    `json:"pitch"`
}

type HoverView struct {
	Kind       string     `json:"kind"`
	TypeID     string     `json:"type_id,omitempty"`
	InstanceID string     `json:"instance_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	Hint       string     `json:"hint,omitempty"`
	Point      [3]float64 `json:"point"`
	Normal     [3]float64 `json:"normal"`
	Placement  *geom.Cell `json:"placement,omitempty"`
}

// Snapshot builds a view of the current state without advancing the tick.
func (w *World) Snapshot() Snapshot {
	return w.snapshot(w.tick, Result{})
}

func (w *World) snapshot(tick uint64, res Result) Snapshot {
	p := w.player
	s := Snapshot{
		Tick: tick,
		Player: PlayerView{
			Position: p.Position,
			Velocity: p.Velocity,
			View:     p.ViewDirection(),
			Yaw:      p.Yaw,
			Pitch:    p.Pitch,
		},
		Held:      w.hand.HeldTypeID(),
		Resources: w.supply.Blocks(),
		Placed:    w.PlacedBlocks(),
		Supply:    w.supply.Counts(),
		Digest:    w.Digest(),
	}
	if res.Outcome != OutcomeNone {
		r := res
		s.Result = &r
	}
	if !w.hovering {
		return s
	}
	t := w.hover
	hv := &HoverView{
		Kind:   t.Kind.String(),
		Point:  t.Point,
		Normal: t.Normal,
	}
	if t.HasPlacement {
		c := t.PlacementCell
		hv.Placement = &c
	}
	if t.Kind != interact.KindEnvironment {
		hv.TypeID = t.TypeID
		hv.InstanceID = t.InstanceID
		if def, ok := w.cat.Get(t.TypeID); ok {
			hv.Name = def.Name
		}
		hv.Hint = HintPickUp
		if w.hand.Holding() {
			hv.Hint = HintPlaceHere
		}
	}
	s.Hover = hv
	if w.hand.Holding() && t.HasPlacement && w.cfg.inBounds(t.PlacementCell) && !w.index.Occupied(t.PlacementCell) {
		c := t.PlacementCell
		s.Preview = &c
	}
	return s
}
