/*
Package arbor executes tree-shaped task pipelines.

A pipeline is a list of task descriptors, each naming an action and an
optional parent. Arbor walks the resulting tree depth-first from its root,
runs every reachable task exactly once, and hands each child its own deep
copy of the parent's resulting state, so sibling branches never observe each
other's changes.

# Concepts

  - Task Descriptor: plain data (id, parent, name, action, params).
  - Task Graph: descriptors indexed by id and by parent.
  - Task Instance: an action bound to one input state.
  - Executor: the depth-first walk with a run-scoped visited set.

# Usage

	eng, err := arbor.New()
	if err != nil {
		log.Fatal(err)
	}

	p, err := pipeline.Load("pipeline.yaml")
	if err != nil {
		log.Fatal(err)
	}

	record, err := eng.RunSource(ctx, p.Name, p)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(record.Status, record.Visited)

The cmd/arbor binary exposes the same engine through a CLI, an HTTP API and
an MCP server.
*/
package arbor
