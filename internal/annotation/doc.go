// Package annotation defines the annotation payload and stored entry types
// shared by the store, the shape strategies and the persistence layer.
package annotation
