package world

import (
	"errors"
	"fmt"

	"voxelyard.dev/internal/sim/geom"
	"voxelyard.dev/internal/sim/interact"
	"voxelyard.dev/internal/sim/inventory"
	"voxelyard.dev/internal/sim/spatial"
)

// Outcome is what a single interact action did. Everything except the three
// success outcomes leaves the world untouched.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomePickedResource
	OutcomePickedPlaced
	OutcomePlaced
	OutcomeCellOccupied
	OutcomeOutOfBounds
	OutcomeNoPlacementCell
)

func (o Outcome) String() string {
	switch o {
	case OutcomePickedResource:
		return "PICKED_RESOURCE"
	case OutcomePickedPlaced:
		return "PICKED_PLACED"
	case OutcomePlaced:
		return "PLACED"
	case OutcomeCellOccupied:
		return "CELL_OCCUPIED"
	case OutcomeOutOfBounds:
		return "OUT_OF_BOUNDS"
	case OutcomeNoPlacementCell:
		return "NO_PLACEMENT_CELL"
	default:
		return "NONE"
	}
}

var outcomeByName = map[string]Outcome{}

func init() {
	for o := OutcomeNone; o <= OutcomeNoPlacementCell; o++ {
		outcomeByName[o.String()] = o
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(b []byte) error {
	v, ok := outcomeByName[string(b)]
	if !ok {
		return fmt.Errorf("unknown outcome %q", b)
	}
	*o = v
	return nil
}

// Changed reports whether the outcome mutated the world.
func (o Outcome) Changed() bool {
	switch o {
	case OutcomePickedResource, OutcomePickedPlaced, OutcomePlaced:
		return true
	default:
		return false
	}
}

type Result struct {
	Outcome    Outcome   `json:"outcome"`
	TypeID     string    `json:"type_id,omitempty"`
	InstanceID string    `json:"instance_id,omitempty"`
	Cell       geom.Cell `json:"cell"`
}

// Interact fires the primary action against the current hover target.
//
//	empty-handed + resource/placed  -> pick up
//	holding + free placement cell   -> place
//	anything else                   -> no-op
func (w *World) Interact() Result {
	var res Result
	if w.hand.Holding() {
		res = w.place()
	} else {
		res = w.pickUp()
	}
	if res.Outcome == OutcomeNone {
		return res
	}
	if res.Outcome.Changed() {
		w.refreshHover()
	}
	w.audit(AuditEntry{
		Tick:       w.tick,
		Actor:      "player",
		Action:     res.Outcome.String(),
		TypeID:     res.TypeID,
		InstanceID: res.InstanceID,
		Pos:        res.Cell.Array(),
	})
	if w.metrics != nil {
		w.metrics.CountOutcome(res.Outcome.String())
	}
	return res
}

func (w *World) pickUp() Result {
	if !w.hovering {
		return Result{}
	}
	t := w.hover
	def, ok := w.cat.Get(t.TypeID)
	if !ok {
		return Result{}
	}
	// The target must still be indexed under the origin it was hovered as.
	if t.Kind != interact.KindEnvironment {
		in, ok := w.index.Get(t.InstanceID)
		if !ok || in.Origin != originOf(t.Kind) {
			return Result{}
		}
	}
	switch t.Kind {
	case interact.KindResource:
		b, err := w.supply.Take(t.InstanceID)
		if err != nil {
			return Result{}
		}
		if _, err := w.index.Remove(b.InstanceID); err != nil {
			return Result{}
		}
		_ = w.hand.Take(def)
		return Result{Outcome: OutcomePickedResource, TypeID: b.TypeID, InstanceID: b.InstanceID, Cell: b.Cell}
	case interact.KindPlaced:
		b, ok := w.placed[t.InstanceID]
		if !ok {
			return Result{}
		}
		if _, err := w.index.Remove(b.InstanceID); err != nil {
			return Result{}
		}
		delete(w.placed, b.InstanceID)
		_ = w.hand.Take(def)
		return Result{Outcome: OutcomePickedPlaced, TypeID: b.TypeID, InstanceID: b.InstanceID, Cell: b.Cell}
	case interact.KindEnvironment:
		return Result{}
	default:
		return Result{}
	}
}

func (w *World) place() Result {
	held := w.hand.HeldTypeID()
	if !w.hovering {
		return Result{}
	}
	if !w.hover.HasPlacement {
		return Result{Outcome: OutcomeNoPlacementCell, TypeID: held}
	}
	cell := w.hover.PlacementCell
	if !w.cfg.inBounds(cell) {
		return Result{Outcome: OutcomeOutOfBounds, TypeID: held, Cell: cell}
	}
	id := w.ids.Generate()
	err := w.index.Insert(spatial.Instance{ID: id, TypeID: held, Cell: cell, Origin: spatial.OriginPlaced})
	switch {
	case errors.Is(err, spatial.ErrOccupiedCell):
		return Result{Outcome: OutcomeCellOccupied, TypeID: held, Cell: cell}
	case err != nil:
		return Result{}
	}
	def, err := w.hand.Release()
	if err != nil {
		_, _ = w.index.Remove(id)
		return Result{}
	}
	w.placed[id] = inventory.PlacedBlock{InstanceID: id, TypeID: def.ID, Cell: cell}
	return Result{Outcome: OutcomePlaced, TypeID: def.ID, InstanceID: id, Cell: cell}
}

func originOf(k interact.Kind) spatial.Origin {
	if k == interact.KindResource {
		return spatial.OriginResource
	}
	return spatial.OriginPlaced
}
