package ime

import "errors"

var (
	// ErrProtocolViolation is returned when a composer answers outside
	// its contract, for example with an undefined ProcessResult.
	ErrProtocolViolation = errors.New("composer protocol violation")

	// ErrInvalidMode is returned when the host supplies a malformed
	// input-mode value.
	ErrInvalidMode = errors.New("invalid input mode")

	// ErrNilClient is returned when an operation that may touch the
	// client is called without one.
	ErrNilClient = errors.New("nil input client")
)

// Composer turns key events into composed, candidate and committed text.
//
// A composer owns its buffers. The engine only reads them and drains the
// commit buffer through DequeueCommitString.
type Composer interface {
	// Handle processes one event and classifies the outcome.
	Handle(ev Event, client InputClient) ProcessResult

	// DequeueCommitString takes the pending commit text and leaves the
	// commit buffer empty. Text returned once is never returned again.
	DequeueCommitString() string

	// ComposedString is the text currently being composed.
	ComposedString() string

	// OriginalString is the raw keystroke history of the composition.
	OriginalString() string

	// Candidates lists alternatives for the current composition.
	Candidates() []string

	// CandidateSelected accepts a candidate. The composer usually moves
	// it into the commit buffer.
	CandidateSelected(candidate string)

	// CandidateSelectionChanged previews a highlighted candidate.
	CandidateSelectionChanged(candidate string)

	// CancelComposition ends the in-progress composition. Afterwards
	// ComposedString and OriginalString are empty. Whether the abandoned
	// text is dropped or moved into the commit buffer is up to the
	// composer.
	CancelComposition()

	// ControllerDidCommit is called after committed text reached the
	// client.
	ControllerDidCommit()

	InputMode() string
	SetInputMode(mode string)
}

// ModeValidator is implemented by composers that know which mode
// identifiers they accept.
type ModeValidator interface {
	ValidMode(mode string) bool
}

// InputClient is the host's editable text surface.
type InputClient interface {
	// SelectionRange returns the current selection. Callers must not
	// cache it across calls.
	SelectionRange() SelectionRange

	// InsertText inserts text, replacing the given range. NoRange
	// inserts at the caret.
	InsertText(text string, replacement SelectionRange)
}

// Host receives composition display changes.
type Host interface {
	UpdateComposition(c Composition)
	CancelComposition()
}
