// Package registry resolves action names to task constructors.
//
// The set of actions is a lookup table: new variants are added with
// Register instead of extending a dispatch function.
package registry
