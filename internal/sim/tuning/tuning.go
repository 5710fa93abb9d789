package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	World       World       `yaml:"world"`
	Shelf       Shelf       `yaml:"shelf"`
	Locomotion  Locomotion  `yaml:"locomotion"`
	Interaction Interaction `yaml:"interaction"`
	Contact     Contact     `yaml:"contact"`
}

// World describes the room: a square floor of Size units, Height tall, with
// 1-unit walls centred on the floor edge.
type World struct {
	Size          int       `yaml:"size"`
	Height        int       `yaml:"height"`
	Bound         float64   `yaml:"bound"`
	FloorY        float64   `yaml:"floor_y"`
	CeilingY      float64   `yaml:"ceiling_y"`
	SpawnPos      []float64 `yaml:"spawn_pos"`
	WallThickness float64   `yaml:"wall_thickness"`
}

type Shelf struct {
	CopiesPerType int   `yaml:"copies_per_type"`
	Columns       int   `yaml:"columns"`
	Origin        []int `yaml:"origin"`
	CopyStep      []int `yaml:"copy_step"`
	RowStep       []int `yaml:"row_step"`
	ColStep       []int `yaml:"col_step"`
}

type Locomotion struct {
	BaseSpeed        float64 `yaml:"base_speed"`
	SprintMultiplier float64 `yaml:"sprint_multiplier"`
	Gain             float64 `yaml:"gain"`
	Damping          float64 `yaml:"damping"`
	AnalogThreshold  float64 `yaml:"analog_threshold"`
	LookSensitivity  float64 `yaml:"look_sensitivity"`
}

type Interaction struct {
	MaxRange float64 `yaml:"max_range"`
}

type Contact struct {
	Address  string `yaml:"address"`
	TeamName string `yaml:"team_name"`
	Subject  string `yaml:"subject"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz: 30,
		World: World{
			Size:          40,
			Height:        15,
			Bound:         19,
			FloorY:        2,
			CeilingY:      13,
			SpawnPos:      []float64{0, 2, 5},
			WallThickness: 1,
		},
		Shelf: Shelf{
			CopiesPerType: 3,
			Columns:       5,
			Origin:        []int{-18, 1, -4},
			CopyStep:      []int{1, 0, 0},
			RowStep:       []int{0, 2, 0},
			ColStep:       []int{0, 0, 2},
		},
		Locomotion: Locomotion{
			BaseSpeed:        4.0,
			SprintMultiplier: 2.0,
			Gain:             5.0,
			Damping:          0.9,
			AnalogThreshold:  0.2,
			LookSensitivity:  1.0,
		},
		Interaction: Interaction{MaxRange: 100},
		Contact: Contact{
			Address:  "info@xr-dreams.com",
			TeamName: "Montseny XR",
			Subject:  "Montseny XR Project Build",
		},
	}
}

// Load reads a tuning file on top of Defaults, so a partial file only
// overrides the keys it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	w := t.World
	if w.Size <= 0 || w.Height <= 0 {
		return fmt.Errorf("world size/height must be > 0")
	}
	if w.Bound <= 0 || w.Bound > float64(w.Size)/2 {
		return fmt.Errorf("world bound %.2f outside room", w.Bound)
	}
	if w.FloorY >= w.CeilingY || w.CeilingY > float64(w.Height) {
		return fmt.Errorf("floor_y/ceiling_y out of order")
	}
	if len(w.SpawnPos) != 3 {
		return fmt.Errorf("spawn_pos must have 3 components")
	}
	s := t.Shelf
	if s.CopiesPerType < 0 || s.Columns <= 0 {
		return fmt.Errorf("shelf copies_per_type/columns invalid")
	}
	for name, v := range map[string][]int{"origin": s.Origin, "copy_step": s.CopyStep, "row_step": s.RowStep, "col_step": s.ColStep} {
		if len(v) != 3 {
			return fmt.Errorf("shelf %s must have 3 components", name)
		}
	}
	l := t.Locomotion
	if l.BaseSpeed <= 0 || l.SprintMultiplier < 1 || l.Gain <= 0 {
		return fmt.Errorf("locomotion speed/gain invalid")
	}
	if l.Damping <= 0 || l.Damping >= 1 {
		return fmt.Errorf("locomotion damping must be in (0,1)")
	}
	if l.AnalogThreshold < 0 || l.AnalogThreshold >= 1 {
		return fmt.Errorf("locomotion analog_threshold must be in [0,1)")
	}
	if t.Interaction.MaxRange <= 0 {
		return fmt.Errorf("interaction max_range must be > 0")
	}
	return nil
}
