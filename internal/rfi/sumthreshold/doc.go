// Package sumthreshold implements the combinatorial sliding-window flagger.
//
// A pass of length L and threshold t visits every window of L consecutive
// samples along one axis. The unflagged samples of the window are averaged;
// when at least one sample contributed and the absolute average exceeds t,
// all L positions of the window are flagged. Every window reads the mask as
// it was before the pass, so flags raised during a pass never influence
// other windows of the same pass.
//
// Three tiers compute the same result:
//
//	Scalar  one running sum per row or column
//	Lanes4  four rows (horizontal) or columns (vertical) advanced together
//	Lanes8  eight lanes while more than four remain, then one Lanes4 block
//
// Tiers are bit-identical to each other: every lane performs the same
// float32 operations in the same order as the scalar loop, and flags are
// combined as 0/1 byte masks OR-ed into the output. Best picks the widest
// tier the CPU is expected to run well.
//
// Supported lengths are 1, 2, 4, ..., 256. Length 1 is a plain in-place
// threshold.
package sumthreshold
