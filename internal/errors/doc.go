// Package errors defines the typed errors and sentinel errors used by the
// runner. All typed errors implement the RunnerError marker interface.
package errors
