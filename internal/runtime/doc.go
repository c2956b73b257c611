// Package runtime implements the graph executor: a depth-first, pre-order walk
// of a task tree in which every child receives a deep clone of its parent's
// resulting state and every task id runs at most once per run.
//
// The walk is sequential by default. WithParallelism lets sibling subtrees run
// concurrently; the visited set is then the only shared resource and must
// provide atomic claims.
package runtime
