// Package store defines the task persistence contract and the errors every
// backend returns. Concrete backends live under internal/platform.
package store
