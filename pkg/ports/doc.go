/*
Package ports defines the driven ports (interfaces) for the arbor engine.

These interfaces decouple the tree executor from concrete actions, state
types, descriptor sources and storage backends.

# Key Interfaces

  - TaskInstance / TaskFactory: The capability contract for action variants.
  - VisitedSet: Run-scoped record of claimed task ids (in-memory or Redis).
  - DescriptorSource: Anything that yields a list of task descriptors.
  - RunStore: Responsible for persisting and loading run records.
  - DistributedLocker: Provides distributed locking so a pipeline runs once at a time across replicas.
*/
package ports
