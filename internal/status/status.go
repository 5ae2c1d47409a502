// Package status implements the sticky OK/EOF/ERR state machine spec.md §3
// assigns to every stage: "Once ERR or EOF is set, it is sticky; OK never
// returns after being superseded." Every codec reader embeds a Status and
// consults it before doing any work; the codec writers keep no Status.
package status

// State is one of OK, EOF, ERR (spec.md §3).
type State int

// States, in the monotone order spec.md §3 requires: OK → (EOF | ERR).
const (
	OK State = iota
	EOF
	ERR
)

// Status tracks a stage's terminal state and the error that latched it,
// if any.
type Status struct {
	state State
	err   error
}

// State returns the current state.
func (s *Status) State() State { return s.state }

// Err returns the latched error, if the state is ERR.
func (s *Status) Err() error { return s.err }

// LatchEOF moves the state to EOF if it is still OK. Latching is a no-op
// once the state is already terminal (sticky).
func (s *Status) LatchEOF() {
	if s.state == OK {
		s.state = EOF
	}
}

// LatchErr moves the state to ERR if it is still OK, recording err. A
// state that is already terminal is left untouched (sticky: the first
// latch wins).
func (s *Status) LatchErr(err error) {
	if s.state == OK {
		s.state = ERR
		s.err = err
	}
}
