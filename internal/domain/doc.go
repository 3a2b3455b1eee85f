// Package domain contains the task entity, its schema rules and the
// validation errors returned when a candidate record does not fit them.
// It is independent of HTTP and of any particular store.
package domain
