// Package compare aligns two measurement batches of the same part taken at
// different manufacturing stages, typically the wax pattern and the cast
// metal part. Dimensions of the second batch carry a stage prefix that is
// stripped before joining on the dimension name.
package compare
