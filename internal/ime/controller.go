package ime

// trigger records who asked for a commit. It is passed down the call
// chain instead of living on a shared object, so an external request can
// never observe a flag left over from an event.
type trigger int

const (
	// external: focus loss, host flush, mode switch. No event in flight.
	external trigger = iota
	// internal: part of the event or candidate call being processed.
	internal
)

func (t trigger) String() string {
	if t == internal {
		return "internal"
	}
	return "external"
}

// Controller owns the commit, update and cancel primitives. It is the
// only component that mutates the client or notifies the host.
type Controller struct {
	composer Composer
	host     Host
	obs      Observer
}

// NewController creates a controller over composer that reports to host.
func NewController(composer Composer, host Host, obs Observer) *Controller {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Controller{
		composer: composer,
		host:     host,
		obs:      obs,
	}
}

// commit drains the commit buffer into client. It reports whether any
// text was inserted.
func (c *Controller) commit(t trigger, client InputClient) bool {
	if t == external {
		// Canonicalize composer state before an out-of-band commit.
		c.cancel(t)
	}

	text := c.composer.DequeueCommitString()
	if text == "" {
		return false
	}

	replacement := NoRange
	if sel := client.SelectionRange(); sel.HasSelection() {
		replacement = sel
	}
	client.InsertText(text, replacement)
	c.obs.Committed(text, replacement, t.String())

	c.composer.ControllerDidCommit()
	return true
}

// update pushes the composer's display state to the host.
func (c *Controller) update() {
	comp := c.snapshot()
	c.host.UpdateComposition(comp)
	c.obs.Updated(comp)
}

func (c *Controller) snapshot() Composition {
	return Composition{
		Composed:   c.composer.ComposedString(),
		Original:   c.composer.OriginalString(),
		Candidates: c.composer.Candidates(),
		Mode:       c.composer.InputMode(),
	}
}

// cancel ends the composer's in-progress composition and clears the
// host display. The commit buffer is left alone.
func (c *Controller) cancel(t trigger) {
	c.composer.CancelComposition()
	c.host.CancelComposition()
	c.obs.Cancelled(t.String())
}
