package attribution

// Run processes staged hunks sequentially, one at a time, against the full
// candidate stack. Each hunk's walk is independent of every other hunk's
// walk — none of them mutate shared state, and none reads another hunk's
// rewritten coordinates — so a future revision could dispatch the per-hunk
// calls to attributeHunk across a worker pool keyed by hunk index and merge
// the resulting intents/unabsorbed records afterward. That's not done here:
// a typical staged diff carries at most a few dozen hunks, and the wall
// clock is dominated by the one-time per-candidate diff parsing the stack
// selector already performs up front, not by the walk itself.
