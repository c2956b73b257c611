/*
Package domain contains the core domain models of the arbor pipeline engine.

It defines the entities the executor works with: task descriptors, the
forkable state contract, run records and the lifecycle events emitted while a
tree of tasks is walked. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - TaskDescriptor: A declarative pipeline step (id, parent, action, params).
  - State: The mutable value tasks operate on. It must support deep cloning so
    every branch of the tree receives its own copy.
  - RunRecord: The persisted outcome of one execution of a pipeline.
  - LifecycleHooks: Callbacks fired on task enter/leave, forks and failures.
*/
package domain
