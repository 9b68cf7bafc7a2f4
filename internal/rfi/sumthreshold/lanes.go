package sumthreshold

import "math"

// Lane helpers shared by the 4- and 8-lane tiers. A flag byte is 0 or 1, so
// uint32(flag)-1 is all ones for an unflagged sample and zero for a flagged
// one; AND-ing the float bits with it selects the sample or +0.

func keepBits(flag byte) uint32 {
	return uint32(flag) - 1
}

func selectValue(v float32, keep uint32) float32 {
	return math.Float32frombits(math.Float32bits(v) & keep)
}

func boolByte(b bool) byte {
	var r byte
	if b {
		r = 1
	}
	return r
}

// laneValidity returns a 0/1 byte per lane, 1 for the first valid lanes.
func laneValidity8(valid int) (lanes [8]byte) {
	for l := 0; l < valid && l < len(lanes); l++ {
		lanes[l] = 1
	}
	return lanes
}

func laneValidity4(valid int) (lanes [4]byte) {
	for l := 0; l < valid && l < len(lanes); l++ {
		lanes[l] = 1
	}
	return lanes
}
