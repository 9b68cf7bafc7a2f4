// Package tfgrid owns the time-frequency data model used by the flagger.
//
// Responsibilities: the float sample Grid, the boolean flag Mask, their
// padded row layout, and the shape-changing helpers (trim, shrink, enlarge,
// transpose) that keep that layout intact.
// Key types: Grid, Mask.
//
// Layout rule: x is the fast (time) axis and y the slow (frequency) axis.
// Every row starts at a multiple of LaneWidth elements from an aligned base,
// so the vectorised passes in package sumthreshold can load whole lanes
// without bounds juggling. Padding columns and padding rows are zeroed (or
// false) and are never part of the logical data.
//
// No thresholding or statistics policy lives here.
package tfgrid
