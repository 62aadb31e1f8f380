// Package resource provides process-wide resource accounting for dataset
// registries: a non-blocking memory budget backed by a weighted semaphore,
// and token-bucket IO throttling for snapshot streaming.
package resource
