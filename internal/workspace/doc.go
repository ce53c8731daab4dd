// Package workspace owns the two scratch directories used by conversions.
//
// Uploaded files land in the intake root and converted files in the output
// root. Every artifact is named by a random UUID (outputs additionally carry
// the target format as extension), so concurrent requests never collide and
// no locking is required.
//
// Release is best-effort and idempotent: a file that is already gone is not
// an error, and any other deletion failure is logged and counted but never
// returned to the caller.
package workspace
