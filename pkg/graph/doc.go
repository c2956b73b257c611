/*
Package graph indexes a flat list of task descriptors into a rooted tree.

Build produces two indices: id → descriptor (last write wins on duplicate
ids) and parent → ordered children (with a distinguished key for tasks that
declare no parent). The Graph is immutable once built and safe for concurrent
reads.

	g, err := graph.Build(descriptors)
	if err != nil {
		return err
	}
	entry, _ := g.Entry()
	for _, child := range g.Children(*entry.ID) {
		// ...
	}
*/
package graph
