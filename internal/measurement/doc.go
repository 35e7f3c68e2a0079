// Package measurement turns pasted spreadsheet exports into the canonical
// long-format measurement table.
//
// Two input layouts are recognised. The structured layout starts with the
// header
//
//	Date  Serial  OF  Nom_Cote  Mesure  Nominal  Tolérance_Min  Tolérance_Max
//
// optionally followed by one position column (Hauteur, Position or Z). The raw
// layout is the fixed grid produced by the measuring machine: dimension names
// and tolerance rows at fixed offsets, one part per data row and one
// dimension per column. Raw grids are reshaped wide-to-long, N parts by M
// dimensions becoming N×M measurements.
//
// Parsing has no side effects; callers extend their dimension registry from
// the returned Table once parsing succeeded.
package measurement
