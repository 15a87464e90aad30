// Package scriptstore provides a filesystem-backed, content-addressed store of serialized edit scripts.
//
// A script is keyed by the hashes of the old and new texts it connects, so storing the same pair twice is a no-op and a stored script can later be replayed
// against any copy of the old text. Applying a stored script to text other than its recorded base fails with a script mismatch (see diff.IsScriptMismatch).
//
// Storage is rooted at Store.AbsRoot and uses a sharded directory structure:
//
//	<AbsRoot>/scripts-v1/<key[0:2]>/<key[2:]>
//
// Records are written as JSON and are intended to be Git-friendly: merge conflicts occur only when different records are written for the same key.
package scriptstore
