// Package world is the session controller. A World owns the shelf supply,
// the placed blocks, the player's hand and the locomotion state, and mutates
// them only from Tick, Interact and Reset. Run drives those from a single
// goroutine; every other goroutine talks to it through channels.
package world

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"voxelyard.dev/internal/sim/catalogs"
	"voxelyard.dev/internal/sim/geom"
	"voxelyard.dev/internal/sim/ids"
	"voxelyard.dev/internal/sim/interact"
	"voxelyard.dev/internal/sim/inventory"
	"voxelyard.dev/internal/sim/locomotion"
	"voxelyard.dev/internal/sim/manifest"
	"voxelyard.dev/internal/sim/spatial"
	"voxelyard.dev/internal/sim/tuning"
)

type Config struct {
	ID         string
	TickRateHz int

	Spawn mgl64.Vec3
	// Room is the inner shell of the walls, floor and ceiling.
	Room geom.AABB
	// Placement is limited to cells within [PlaceMin, PlaceMax] on every axis.
	PlaceMin geom.Cell
	PlaceMax geom.Cell

	Shelf      inventory.ShelfLayout
	Locomotion locomotion.Params
	MaxRange   float64
	Contact    manifest.Contact
}

func cellOf(v []int) geom.Cell {
	if len(v) != 3 {
		return geom.Cell{}
	}
	return geom.Cell{X: v[0], Y: v[1], Z: v[2]}
}

// ConfigFromTuning derives the world geometry from tuning. Walls are centred
// on the floor edge, so the inner shell sits half a wall inside it.
func ConfigFromTuning(id string, t tuning.Tuning) Config {
	w := t.World
	half := float64(w.Size)/2 - w.WallThickness/2
	place := int(math.Floor(half))
	spawn := mgl64.Vec3{}
	if len(w.SpawnPos) == 3 {
		spawn = mgl64.Vec3{w.SpawnPos[0], w.SpawnPos[1], w.SpawnPos[2]}
	}
	return Config{
		ID:         id,
		TickRateHz: t.TickRateHz,
		Spawn:      spawn,
		Room: geom.AABB{
			Min: mgl64.Vec3{-half, 0, -half},
			Max: mgl64.Vec3{half, float64(w.Height), half},
		},
		PlaceMin: geom.Cell{X: -place, Y: 0, Z: -place},
		PlaceMax: geom.Cell{X: place, Y: w.Height - 1, Z: place},
		Shelf: inventory.ShelfLayout{
			Copies:   t.Shelf.CopiesPerType,
			Columns:  t.Shelf.Columns,
			Origin:   cellOf(t.Shelf.Origin),
			CopyStep: cellOf(t.Shelf.CopyStep),
			RowStep:  cellOf(t.Shelf.RowStep),
			ColStep:  cellOf(t.Shelf.ColStep),
		},
		Locomotion: locomotion.ParamsFromTuning(t),
		MaxRange:   t.Interaction.MaxRange,
		Contact: manifest.Contact{
			Address:  t.Contact.Address,
			TeamName: t.Contact.TeamName,
			Subject:  t.Contact.Subject,
		},
	}
}

func (c Config) inBounds(cell geom.Cell) bool {
	return cell.X >= c.PlaceMin.X && cell.X <= c.PlaceMax.X &&
		cell.Y >= c.PlaceMin.Y && cell.Y <= c.PlaceMax.Y &&
		cell.Z >= c.PlaceMin.Z && cell.Z <= c.PlaceMax.Z
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// Metrics receives tick timings and interaction outcomes.
type Metrics interface {
	ObserveTick(d time.Duration)
	CountOutcome(outcome string)
	SetPlaced(n int)
}

type TickLogEntry struct {
	Tick    uint64  `json:"tick"`
	Delta   float64 `json:"delta"`
	Input   Input   `json:"input"`
	Outcome string  `json:"outcome,omitempty"`
	Digest  string  `json:"digest"`
}

type AuditEntry struct {
	Tick       uint64 `json:"tick"`
	Actor      string `json:"actor"`
	Action     string `json:"action"`
	TypeID     string `json:"type_id,omitempty"`
	InstanceID string `json:"instance_id,omitempty"`
	Pos        [3]int `json:"pos"`
	Reason     string `json:"reason,omitempty"`
}

type Option func(*World)

func WithIDs(g ids.Generator) Option { return func(w *World) { w.ids = g } }

func WithClock(now func() time.Time) Option { return func(w *World) { w.now = now } }

func WithTickLogger(l TickLogger) Option { return func(w *World) { w.tickLogger = l } }

func WithAuditLogger(l AuditLogger) Option { return func(w *World) { w.auditLogger = l } }

func WithMetrics(m Metrics) Option { return func(w *World) { w.metrics = m } }

type World struct {
	cfg Config
	cat *catalogs.BlockCatalog

	ids ids.Generator
	now func() time.Time

	tickLogger  TickLogger
	auditLogger AuditLogger
	metrics     Metrics

	tick   uint64
	index  *spatial.Index
	supply *inventory.Supply
	placed map[string]inventory.PlacedBlock
	hand   inventory.Hand
	player locomotion.Player

	resolver interact.Resolver
	hover    interact.Target
	hovering bool

	resMu     sync.Mutex
	resources []namedResource
	released  bool

	// Runtime channels, see runtime_loop.go.
	inputs      chan Input
	subscribe   chan subscribeReq
	unsubscribe chan string
	manifestReq chan manifestReq
	resetReq    chan chan struct{}
	stop        chan struct{}
	stopOnce    sync.Once
	done        chan struct{}
	doneOnce    sync.Once
	subscribers map[string]chan Snapshot
}

// New seeds the shelf from cat and places the player at the spawn point.
// cat is shared read-only; World never mutates it.
func New(cfg Config, cat *catalogs.BlockCatalog, opts ...Option) (*World, error) {
	if cat == nil || cat.Len() == 0 {
		return nil, fmt.Errorf("world: empty block catalog")
	}
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("world: tick rate must be > 0")
	}
	w := &World{
		cfg:      cfg,
		cat:      cat,
		ids:      ids.UUID{},
		now:      time.Now,
		resolver: interact.NewResolver(cfg.MaxRange),

		inputs:      make(chan Input, 64),
		subscribe:   make(chan subscribeReq, 8),
		unsubscribe: make(chan string, 8),
		manifestReq: make(chan manifestReq, 8),
		resetReq:    make(chan chan struct{}, 8),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		subscribers: map[string]chan Snapshot{},
	}
	for _, o := range opts {
		o(w)
	}
	if err := w.seed(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *World) seed() error {
	shelf := inventory.SeedShelf(w.cat, w.cfg.Shelf)
	index := spatial.New()
	for _, b := range shelf {
		if !w.cfg.inBounds(b.Cell) {
			return fmt.Errorf("world: shelf block %s at %v outside room", b.InstanceID, b.Cell.Array())
		}
		err := index.Insert(spatial.Instance{ID: b.InstanceID, TypeID: b.TypeID, Cell: b.Cell, Origin: spatial.OriginResource})
		if err != nil {
			return fmt.Errorf("world: seed %s: %w", b.InstanceID, err)
		}
	}
	w.index = index
	w.supply = inventory.NewSupply(shelf)
	w.placed = map[string]inventory.PlacedBlock{}
	w.hand.Clear()
	w.player = locomotion.NewPlayer(w.cfg.Spawn)
	w.hover, w.hovering = interact.Target{}, false
	return nil
}

func (w *World) ID() string { return w.cfg.ID }

func (w *World) TickRateHz() int { return w.cfg.TickRateHz }

func (w *World) CurrentTick() uint64 { return w.tick }

func (w *World) Catalog() *catalogs.BlockCatalog { return w.cat }

func (w *World) Config() Config { return w.cfg }

// Reset restores the session to its initial state: full shelf, nothing
// placed, empty hand, player at spawn. The tick counter keeps running.
func (w *World) Reset() {
	// The layout was valid at construction and nothing has changed it.
	_ = w.seed()
	w.audit(AuditEntry{Tick: w.tick, Actor: "session", Action: "RESET"})
}

// Manifest summarises the placed blocks.
func (w *World) Manifest() (manifest.Manifest, error) {
	return manifest.Generate(w.PlacedBlocks(), w.cat, w.now(), w.cfg.Contact)
}

func (w *World) PlacedBlocks() []inventory.PlacedBlock {
	out := make([]inventory.PlacedBlock, 0, len(w.placed))
	for _, in := range w.index.ByOrigin(spatial.OriginPlaced) {
		out = append(out, w.placed[in.ID])
	}
	return out
}

func (w *World) ResourceBlocks() []inventory.ResourceBlock { return w.supply.Blocks() }

func (w *World) Held() (catalogs.BlockDef, bool) { return w.hand.Held() }

func (w *World) Player() locomotion.Player { return w.player }

// SetView points the player. It exists for tests and tooling that need an
// exact aim without replaying look deltas.
func (w *World) SetView(pos mgl64.Vec3, yaw, pitch float64) {
	w.player.Position = w.cfg.Locomotion.Bounds.Clamp(pos)
	w.player.Velocity = mgl64.Vec3{}
	w.player.Yaw = yaw
	w.player.Pitch = mgl64.Clamp(pitch, -math.Pi/2, math.Pi/2)
	w.refreshHover()
}

type namedResource struct {
	name string
	c    io.Closer
}

// AttachResource registers a device or stream handle that Release must close.
// It may be called from any goroutine.
func (w *World) AttachResource(name string, c io.Closer) {
	if c == nil {
		return
	}
	w.resMu.Lock()
	defer w.resMu.Unlock()
	w.resources = append(w.resources, namedResource{name: name, c: c})
	w.released = false
}

// Release closes every attached resource once, in reverse order of
// attachment. Calling it again, or with nothing attached, is a no-op.
func (w *World) Release() error {
	w.resMu.Lock()
	defer w.resMu.Unlock()
	if w.released {
		return nil
	}
	w.released = true
	var first error
	for i := len(w.resources) - 1; i >= 0; i-- {
		r := w.resources[i]
		if err := r.c.Close(); err != nil && first == nil {
			first = fmt.Errorf("release %s: %w", r.name, err)
		}
	}
	w.resources = nil
	return first
}

func (w *World) audit(e AuditEntry) {
	if w.auditLogger != nil {
		_ = w.auditLogger.WriteAudit(e)
	}
}
