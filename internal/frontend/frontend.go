// Package frontend implements the CLI/TUI contract spec.md §9 calls out
// as "callback polymorphism becomes an interface/trait pair implemented
// once by the TUI and once by the CLI": passphrase prompting, error
// display and yes/no/cancel confirmation. The ncurses-based TUI widget
// layer itself is an external collaborator out of scope (§1); this
// package only carries the abstract contract plus a CLI implementation
// that scripts and tests can drive without a terminal.
package frontend

// Answer is the result of a yes/no/cancel confirmation, spec.md §4.12's
// "data changed — save? (Yes/No/Cancel)" quit guard.
type Answer int

const (
	AnswerNo Answer = iota
	AnswerYes
	AnswerCancel
)

// Frontend is implemented once by the CLI (frontend.CLI, below) and once
// by a TUI this package does not implement, matching spec.md §1's
// boundary around the ncurses/forms widget layer.
type Frontend interface {
	// Passphrase prompts for the passphrase of realm, on retry attempt
	// retry (0 on the first attempt). It satisfies crypto.PassphraseFunc.
	Passphrase(retry int, realm string) (string, error)

	// ShowError surfaces a fatal or advisory error to the user.
	ShowError(err error)

	// Warn surfaces a non-fatal advisory message (e.g. "no secret key in
	// recipients").
	Warn(msg string)

	// Confirm asks a yes/no/cancel question. cancelable controls whether
	// AnswerCancel is offered at all -- some guards are Yes/No only.
	Confirm(prompt string, cancelable bool) Answer

	// Redraw is invoked in response to SIGWINCH; the CLI implementation
	// ignores it, a TUI would repaint.
	Redraw()
}
