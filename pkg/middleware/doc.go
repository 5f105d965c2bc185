// Package middleware contains the HTTP boundary for sessions and access
// control: bearer-token resolution into an identity, per-permission handler
// gates and whole-tree route guarding.
package middleware
