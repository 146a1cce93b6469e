package opendota

import "math/bits"

// building_state bit layout (packed integer):
//
//	bits 0..10   radiant towers alive   (11)
//	bits 11..16  radiant barracks alive (6)
//	bits 17..27  dire towers alive      (11)
//	bits 28..33  dire barracks alive    (6)
//
// A set bit means the building is standing. The dire barracks range
// crosses bit 31, so the mask is decoded as a 64-bit value.
const (
	towerMask = 0x7FF // 11 towers
	raxMask   = 0x3F  // 6 barracks

	radiantRaxShift = 11
	direTowerShift  = 17
	direRaxShift    = 28
)

// buildingKills decodes a building_state bitmask into destroyed-building
// counts: (radiant towers down, dire towers down, radiant rax down,
// dire rax down).
func buildingKills(state uint64) (radiantTowers, direTowers, radiantRax, direRax int32) {
	radiantTowersAlive := state & towerMask
	radiantRaxAlive := (state >> radiantRaxShift) & raxMask
	direTowersAlive := (state >> direTowerShift) & towerMask
	direRaxAlive := (state >> direRaxShift) & raxMask

	radiantTowers = 11 - int32(bits.OnesCount64(radiantTowersAlive))
	direTowers = 11 - int32(bits.OnesCount64(direTowersAlive))
	radiantRax = 6 - int32(bits.OnesCount64(radiantRaxAlive))
	direRax = 6 - int32(bits.OnesCount64(direRaxAlive))
	return
}
