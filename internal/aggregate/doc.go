// Package aggregate reshapes measurements into position-indexed series: by
// angle for dimensions with an angular slot or free angle, and by height
// along the part axis.
package aggregate
