package controller

import "solar_mining/internal/config"

// Action is the lifecycle change a cycle asks for.
type Action int

const (
	ActionNone Action = iota
	ActionStart
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	default:
		return "none"
	}
}

// decideOverride follows the operator's forced state.
func decideOverride(state config.OverrideState, running bool) Action {
	switch {
	case state == config.OverrideOn && !running:
		return ActionStart
	case state != config.OverrideOn && running:
		return ActionStop
	default:
		return ActionNone
	}
}

// decideThreshold applies the hysteresis band. Readings strictly between the
// thresholds keep the current state. The start check runs first, so with
// start <= stop a reading satisfying both starts the miner.
func decideThreshold(watts, start, stop float64, running bool) Action {
	switch {
	case watts >= start:
		if !running {
			return ActionStart
		}
	case watts <= stop:
		if running {
			return ActionStop
		}
	}
	return ActionNone
}
