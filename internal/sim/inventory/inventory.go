package inventory

import (
	"errors"

	"voxelyard.dev/internal/sim/catalogs"
	"voxelyard.dev/internal/sim/geom"
)

var (
	ErrAlreadyHolding = errors.New("inventory: already holding a block")
	ErrEmptyHanded    = errors.New("inventory: nothing held")
	ErrNotOnShelf     = errors.New("inventory: resource block not on shelf")
)

type ResourceBlock struct {
	InstanceID string    `json:"instance_id"`
	TypeID     string    `json:"type_id"`
	Cell       geom.Cell `json:"cell"`
}

type PlacedBlock struct {
	InstanceID string    `json:"instance_id"`
	TypeID     string    `json:"type_id"`
	Cell       geom.Cell `json:"cell"`
}

// Hand is the player's single held slot: empty-handed or holding exactly one
// block type.
type Hand struct {
	held *catalogs.BlockDef
}

func (h *Hand) Held() (catalogs.BlockDef, bool) {
	if h.held == nil {
		return catalogs.BlockDef{}, false
	}
	return *h.held, true
}

func (h *Hand) Holding() bool { return h.held != nil }

// HeldTypeID returns "" when empty-handed.
func (h *Hand) HeldTypeID() string {
	if h.held == nil {
		return ""
	}
	return h.held.ID
}

func (h *Hand) Take(def catalogs.BlockDef) error {
	if h.held != nil {
		return ErrAlreadyHolding
	}
	d := def
	h.held = &d
	return nil
}

func (h *Hand) Release() (catalogs.BlockDef, error) {
	if h.held == nil {
		return catalogs.BlockDef{}, ErrEmptyHanded
	}
	d := *h.held
	h.held = nil
	return d, nil
}

func (h *Hand) Clear() { h.held = nil }
