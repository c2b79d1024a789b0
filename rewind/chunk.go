package rewind

import (
	"time"

	"github.com/arcwell/robogate/types"
)

// chunk is a run of consecutive, same-kind waypoints replayed as one
// interpolated (arm/base) or discrete (gripper) unit.
type chunk struct {
	kind      types.WaypointKind
	waypoints []types.Waypoint
}

func (c chunk) first() types.Waypoint { return c.waypoints[0] }

// group is one or two chunks executed together: a lone chunk, or an
// arm chunk paired with a base chunk whose recorded time ranges
// overlap, per spec.md §4.F's "base move and arm stream issued
// concurrently... both must complete before advancing."
type group struct {
	arm     *chunk
	base    *chunk
	gripper *chunk
}

// partition splits a reverse-chronological waypoint list into
// same-kind chunks of at most size waypoints each, preserving order.
func partition(waypoints []types.Waypoint, size int) []chunk {
	if size <= 0 {
		size = 1
	}
	var chunks []chunk
	for _, wp := range waypoints {
		if n := len(chunks); n > 0 {
			last := &chunks[n-1]
			if last.kind == wp.Kind && len(last.waypoints) < size {
				last.waypoints = append(last.waypoints, wp)
				continue
			}
		}
		chunks = append(chunks, chunk{kind: wp.Kind, waypoints: []types.Waypoint{wp}})
	}
	return chunks
}

// group pairs adjacent arm/base chunks whose time ranges overlap into
// a single concurrently-executed group; everything else replays as a
// singleton group in order.
func groupChunks(chunks []chunk) []group {
	var groups []group
	for i := 0; i < len(chunks); i++ {
		c := chunks[i]
		if i+1 < len(chunks) && isArmBasePair(c, chunks[i+1]) && overlaps(c, chunks[i+1]) {
			g := group{}
			assignKind(&g, &chunks[i])
			assignKind(&g, &chunks[i+1])
			groups = append(groups, g)
			i++
			continue
		}
		g := group{}
		assignKind(&g, &chunks[i])
		groups = append(groups, g)
	}
	return groups
}

func assignKind(g *group, c *chunk) {
	switch c.kind {
	case types.WaypointArmJoint, types.WaypointArmCartesian:
		g.arm = c
	case types.WaypointBasePose:
		g.base = c
	case types.WaypointGripperWidth:
		g.gripper = c
	}
}

func isArmBasePair(a, b chunk) bool {
	isArm := func(k types.WaypointKind) bool {
		return k == types.WaypointArmJoint || k == types.WaypointArmCartesian
	}
	return (isArm(a.kind) && b.kind == types.WaypointBasePose) ||
		(isArm(b.kind) && a.kind == types.WaypointBasePose)
}

func overlaps(a, b chunk) bool {
	aMin, aMax := timeRange(a)
	bMin, bMax := timeRange(b)
	return !aMax.Before(bMin) && !bMax.Before(aMin)
}

func timeRange(c chunk) (min, max time.Time) {
	min, max = c.waypoints[0].Time, c.waypoints[0].Time
	for _, wp := range c.waypoints[1:] {
		if wp.Time.Before(min) {
			min = wp.Time
		}
		if wp.Time.After(max) {
			max = wp.Time
		}
	}
	return min, max
}
