// Package job defines the Job entity, its status state machine, the
// terminal Outcome write, and the job persistence contract.
//
// A job moves pending -> processing -> {completed, failed}, or
// pending -> cancelled. All other transitions are rejected with
// digest.ErrInvalidTransition, and terminal statuses are final.
package job
