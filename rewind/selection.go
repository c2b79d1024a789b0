package rewind

import (
	"math"

	"github.com/arcwell/robogate/envelope"
	"github.com/arcwell/robogate/recorder"
	"github.com/arcwell/robogate/types"
)

// SelectionKind discriminates which form a rewind request takes.
type SelectionKind int

const (
	// BySteps rewinds a fixed count of waypoints.
	BySteps SelectionKind = iota
	// ByPercentage rewinds a fraction of the recorded history.
	ByPercentage
	// ByWaypointIndex rewinds back to a specific recorded index.
	ByWaypointIndex
	// ToLastSafe rewinds back to the most recent waypoint at which the
	// base was inside its configured workspace.
	ToLastSafe
)

// Selection names a rewind target in one of the forms spec.md §4.F
// accepts: a step count, a percentage, a waypoint index, or "to last
// safe".
type Selection struct {
	Kind          SelectionKind
	Steps         int
	Percentage    float64
	WaypointIndex int
}

// resolve turns a Selection into a reverse-chronological waypoint list
// (most recently recorded first), the order the engine replays.
func resolve(rec *recorder.Recorder, env *envelope.Envelope, sel Selection) ([]types.Waypoint, error) {
	total := rec.Len()
	if total == 0 {
		return nil, ErrNoWaypoints
	}

	switch sel.Kind {
	case BySteps:
		if sel.Steps <= 0 {
			return nil, ErrInvalidSelection
		}
		return rec.ReverseTail(sel.Steps), nil

	case ByPercentage:
		if sel.Percentage <= 0 || sel.Percentage > 100 {
			return nil, ErrInvalidSelection
		}
		n := int(math.Ceil(float64(total) * sel.Percentage / 100))
		return rec.ReverseTail(n), nil

	case ByWaypointIndex:
		if sel.WaypointIndex < 0 || sel.WaypointIndex >= total {
			return nil, ErrInvalidSelection
		}
		n := total - 1 - sel.WaypointIndex
		if n <= 0 {
			return nil, ErrNoWaypoints
		}
		return rec.ReverseTail(n), nil

	case ToLastSafe:
		return resolveToLastSafe(rec, env), nil

	default:
		return nil, ErrInvalidSelection
	}
}

// resolveToLastSafe walks the history backward from the newest
// waypoint until it finds a base_pose waypoint that satisfies the
// current workspace envelope, returning everything newer than it. If
// no such waypoint exists, the entire history is returned.
func resolveToLastSafe(rec *recorder.Recorder, env *envelope.Envelope) []types.Waypoint {
	all := rec.Snapshot()
	for i := len(all) - 1; i >= 0; i-- {
		wp := all[i]
		if wp.Kind != types.WaypointBasePose || len(wp.Payload) != 3 {
			continue
		}
		cmd := types.BaseCommand{Pose: &types.BasePoseTarget{
			X: wp.Payload[0], Y: wp.Payload[1], Theta: wp.Payload[2],
		}}
		if env.ValidateBaseCommand(&cmd).Outcome == envelope.OutcomeOK {
			return reverseOf(all[i+1:])
		}
	}
	return reverseOf(all)
}

func reverseOf(wps []types.Waypoint) []types.Waypoint {
	out := make([]types.Waypoint, len(wps))
	for i, wp := range wps {
		out[len(wps)-1-i] = wp
	}
	return out
}
