// Package geom implements the polygon and plane primitives used by brush
// decomposition and BSP construction: an immutable coplanar vertex loop
// with a derived supporting plane, four-way classification against an
// arbitrary plane, and epsilon-robust single-plane splitting.
package geom
