package world

import (
	"time"

	"voxelyard.dev/internal/sim/geom"
	"voxelyard.dev/internal/sim/interact"
	"voxelyard.dev/internal/sim/spatial"
)

// Tick advances the session by delta seconds: look, move, resolve the hover
// target, then apply the interact action if it was pressed this tick.
func (w *World) Tick(delta float64, in Input) Snapshot {
	start := time.Now()
	nowTick := w.tick

	w.player.Look(in.LookDeltaYaw, in.LookDeltaPitch, w.cfg.Locomotion.LookSensitivity)
	w.player.Step(delta, in.intent(), w.cfg.Locomotion)
	w.refreshHover()

	var res Result
	if in.InteractPressed {
		res = w.Interact()
	}

	snap := w.snapshot(nowTick, res)
	if w.tickLogger != nil {
		e := TickLogEntry{Tick: nowTick, Delta: delta, Input: in, Digest: snap.Digest}
		if res.Outcome != OutcomeNone {
			e.Outcome = res.Outcome.String()
		}
		_ = w.tickLogger.WriteTick(e)
	}
	if w.metrics != nil {
		w.metrics.ObserveTick(time.Since(start))
		w.metrics.SetPlaced(len(w.placed))
	}
	w.tick++
	return snap
}

func (w *World) eye() geom.Ray {
	r, _ := geom.NewRay(w.player.Position, w.player.ViewDirection())
	return r
}

func (w *World) refreshHover() {
	w.hover, w.hovering = w.resolver.Resolve(w.eye(), w.solids())
}

// Hover returns the current hover target. ok is false when nothing is aimed at.
func (w *World) Hover() (interact.Target, bool) { return w.hover, w.hovering }

// solids lists the tick's collision candidates plus the hand and ghost
// geometry, which the resolver skips.
func (w *World) solids() []interact.Solid {
	all := w.index.All()
	out := make([]interact.Solid, 0, len(all)+3)
	out = append(out, interact.Solid{Layer: interact.LayerShell, Box: w.cfg.Room})
	for _, in := range all {
		layer := interact.LayerResource
		if in.Origin == spatial.OriginPlaced {
			layer = interact.LayerPlaced
		}
		out = append(out, interact.BlockSolid(layer, in.ID, in.TypeID, in.Cell))
	}
	if w.hand.Holding() {
		p := w.player
		held := p.Position.Add(p.ViewDirection().Mul(0.6)).Add(p.Right().Mul(0.35))
		out = append(out, interact.Solid{Layer: interact.LayerHand, Box: geom.BoxAround(held, 0.3)})
		if w.hovering && w.hover.HasPlacement {
			c := w.hover.PlacementCell
			out = append(out, interact.Solid{Layer: interact.LayerPreview, Box: c.Box(), Cell: c})
		}
	}
	return out
}
