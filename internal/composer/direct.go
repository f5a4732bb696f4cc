package composer

import "composed/internal/ime"

// Direct passes every event through to the host.
type Direct struct {
	mode string
}

// NewDirect creates a pass-through composer.
func NewDirect(mode string) *Direct {
	return &Direct{mode: mode}
}

func (d *Direct) Handle(ime.Event, ime.InputClient) ime.ProcessResult { return ime.NotProcessed }
func (d *Direct) DequeueCommitString() string                         { return "" }
func (d *Direct) ComposedString() string                              { return "" }
func (d *Direct) OriginalString() string                              { return "" }
func (d *Direct) Candidates() []string                                { return nil }
func (d *Direct) CandidateSelected(string)         {}
func (d *Direct) CandidateSelectionChanged(string) {}
func (d *Direct) CancelComposition()               {}
func (d *Direct) ControllerDidCommit()             {}
func (d *Direct) InputMode() string        { return d.mode }
func (d *Direct) SetInputMode(mode string) { d.mode = mode }
