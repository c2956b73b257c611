// Package pipeline loads pipeline documents (YAML or JSON) into ordered task
// descriptors.
//
// Two document versions are understood:
//
//	apiVersion: 1  a linear list; each task runs on the output of the one before it.
//	apiVersion: 2  a tree; tasks declare "id" and optionally "parent".
//
// Every task requires "name" and "action". An optional "config" mapping is
// passed to the action as its params.
package pipeline
