package world

import "voxelyard.dev/internal/sim/locomotion"

// Input is the normalized per-tick input record. Keyboard, pointer and touch
// sources all map onto it. AnalogX/AnalogY carry a touch joystick in [-1,1].
type Input struct {
	MoveForward bool `json:"move_forward,omitempty"`
	MoveBack    bool `json:"move_back,omitempty"`
	MoveLeft    bool `json:"move_left,omitempty"`
	MoveRight   bool `json:"move_right,omitempty"`
	Sprint      bool `json:"sprint,omitempty"`

	AnalogX float64 `json:"analog_x,omitempty"`
	AnalogY float64 `json:"analog_y,omitempty"`

	LookDeltaYaw   float64 `json:"look_yaw,omitempty"`
	LookDeltaPitch float64 `json:"look_pitch,omitempty"`

	InteractPressed bool `json:"interact,omitempty"`
}

func (in Input) intent() locomotion.Intent {
	return locomotion.Intent{
		Forward: in.MoveForward,
		Back:    in.MoveBack,
		Left:    in.MoveLeft,
		Right:   in.MoveRight,
		Sprint:  in.Sprint,
		AnalogX: in.AnalogX,
		AnalogY: in.AnalogY,
	}
}

// merge folds a newer sample into a pending one. Held state follows the
// newest sample, look deltas accumulate and a press is never lost.
func (in Input) merge(next Input) Input {
	out := next
	out.LookDeltaYaw += in.LookDeltaYaw
	out.LookDeltaPitch += in.LookDeltaPitch
	out.InteractPressed = in.InteractPressed || next.InteractPressed
	return out
}

// consumed is what remains pending after a tick: held keys and the stick
// stay down until the next sample, one-shot deltas and presses are spent.
func (in Input) consumed() Input {
	in.LookDeltaYaw = 0
	in.LookDeltaPitch = 0
	in.InteractPressed = false
	return in
}
