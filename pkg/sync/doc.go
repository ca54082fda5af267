/*
The sync package implements foldersync's mirroring algorithm. It makes a
destination directory tree a structural and content copy of a source tree,
one direction only.

A cycle has three phases that always run in this order:
1) Ensure -- Checks that the source root exists (warning only) and creates
   the destination root if it's missing.
2) Prune -- Walks the destination top-down and removes every entry that has
   no counterpart in the source. A directory without a counterpart is removed
   as a unit and its children are never visited.
3) Mirror -- Walks the source top-down, creating missing directories and
   copying files that are missing from the destination, or whose source
   modification time is strictly newer than the destination's.

Decisions only use existence, entry type and modification time. Files with
equal modification times are considered in sync, even if their contents
differ. This is what makes a second cycle over a converged pair a no-op.

Every filesystem failure is scoped to the entry that caused it: it's logged,
counted in the Report, and the walk moves on. Nothing is retried within a
cycle. The next cycle naturally retries whatever is still out of sync.
*/
package sync
