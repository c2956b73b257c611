/*
Package runs tracks pipeline runs and keeps a pipeline from running twice at once.

Locks are held per key (the pipeline name) in local memory with reference
counting, optionally backed by a ports.DistributedLocker so replicas sharing
a store also serialize. Finished run records go to a ports.RunStore.
*/
package runs
