package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"composed/internal/ime"
)

type stepKind int

const (
	stepKeys stepKind = iota
	stepSelect
	stepPreview
	stepMode
	stepFocusOut
	stepSelection
)

// step is one line of a replay script.
type step struct {
	line   int
	raw    string
	kind   stepKind
	events []ime.Event
	n      int
	mode   string
	start  int
	length int
}

var scriptKeys = map[string]ime.KeyName{
	"Enter":  ime.KeyReturn,
	"Esc":    ime.KeyEscape,
	"BS":     ime.KeyBackspace,
	"Del":    ime.KeyDelete,
	"Tab":    ime.KeyTab,
	"Space":  ime.KeySpace,
	"Left":   ime.KeyLeft,
	"Right":  ime.KeyRight,
	"Up":     ime.KeyUp,
	"Down":   ime.KeyDown,
	"Home":   ime.KeyHome,
	"End":    ime.KeyEnd,
	"PgUp":   ime.KeyPageUp,
	"PgDown": ime.KeyPageDown,
}

// parseScript reads one token per line. A line of the form <...> is a
// command; any other line is typed rune by rune. Blank lines and lines
// starting with '#' are skipped.
func parseScript(r io.Reader) ([]step, error) {
	var steps []step
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		s, err := parseStep(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		s.line, s.raw = line, text
		steps = append(steps, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return steps, nil
}

func parseStep(text string) (step, error) {
	inner, ok := strings.CutPrefix(strings.TrimSpace(text), "<")
	if ok {
		inner, ok = strings.CutSuffix(inner, ">")
	}
	if !ok {
		var events []ime.Event
		for _, r := range text {
			events = append(events, ime.TextEvent(string(r)))
		}
		return step{kind: stepKeys, events: events}, nil
	}

	if name, ok := scriptKeys[inner]; ok {
		return step{kind: stepKeys, events: []ime.Event{ime.KeyEvent(name, 0)}}, nil
	}

	cmd, arg, _ := strings.Cut(inner, ":")
	switch cmd {
	case "select", "preview":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return step{}, fmt.Errorf("<%s:N> needs a candidate number from 1, got %q", cmd, arg)
		}
		kind := stepSelect
		if cmd == "preview" {
			kind = stepPreview
		}
		return step{kind: kind, n: n}, nil
	case "mode":
		if arg == "" {
			return step{}, fmt.Errorf("<mode:ID> needs a mode")
		}
		return step{kind: stepMode, mode: arg}, nil
	case "focusout":
		return step{kind: stepFocusOut}, nil
	case "sel":
		a, b, ok := strings.Cut(arg, ",")
		start, err1 := strconv.Atoi(a)
		length, err2 := strconv.Atoi(b)
		if !ok || err1 != nil || err2 != nil || start < 0 || length < 0 {
			return step{}, fmt.Errorf("<sel:START,LEN> needs two non-negative numbers, got %q", arg)
		}
		return step{kind: stepSelection, start: start, length: length}, nil
	}
	return step{}, fmt.Errorf("unknown command <%s>", inner)
}

// transcriptClient is the replay's text field. It prints every host and
// client call before applying it to the buffer.
type transcriptClient struct {
	buf *ime.BufferClient
	out io.Writer
}

func (c *transcriptClient) SelectionRange() ime.SelectionRange {
	return c.buf.SelectionRange()
}

func (c *transcriptClient) InsertText(text string, replacement ime.SelectionRange) {
	fmt.Fprintf(c.out, "  insert %q at %s\n", text, replacement)
	c.buf.InsertText(text, replacement)
}

func (c *transcriptClient) UpdateComposition(comp ime.Composition) {
	fmt.Fprintf(c.out, "  update composed=%q original=%q", comp.Composed, comp.Original)
	if len(comp.Candidates) > 0 {
		fmt.Fprintf(c.out, " candidates=%q", comp.Candidates)
	}
	fmt.Fprintln(c.out)
	c.buf.UpdateComposition(comp)
}

func (c *transcriptClient) CancelComposition() {
	fmt.Fprintln(c.out, "  cancel")
	c.buf.CancelComposition()
}

// replay runs steps against composer and returns the final document.
func replay(steps []step, composer ime.Composer, out io.Writer, opts ...ime.Option) (string, error) {
	client := &transcriptClient{buf: ime.NewBufferClient(""), out: out}
	engine := ime.NewEngine(composer, client, opts...)

	for _, s := range steps {
		if err := runStep(engine, client, s); err != nil {
			return client.buf.Text(), fmt.Errorf("line %d %q: %w", s.line, s.raw, err)
		}
	}

	fmt.Fprintf(out, "document: %q\n", client.buf.Text())
	if comp := client.buf.Marked(); !comp.Empty() {
		fmt.Fprintf(out, "composing: %q\n", comp.Composed)
	}
	return client.buf.Text(), nil
}

func runStep(engine *ime.Engine, client *transcriptClient, s step) error {
	out := client.out
	switch s.kind {
	case stepKeys:
		for _, ev := range s.events {
			fmt.Fprintf(out, "> key %s\n", describe(ev))
			res, err := engine.HandleEvent(ev, client)
			if err != nil {
				return err
			}
			if !res.Consumed() {
				client.buf.ApplyDefault(ev)
			}
			fmt.Fprintf(out, "  = %s\n", res)
		}
	case stepSelect, stepPreview:
		cands := engine.Candidates()
		if s.n > len(cands) {
			return fmt.Errorf("candidate %d of %d", s.n, len(cands))
		}
		c := cands[s.n-1]
		if s.kind == stepPreview {
			fmt.Fprintf(out, "> preview %q\n", c)
			engine.CandidateSelectionChanged(c)
			return nil
		}
		fmt.Fprintf(out, "> select %q\n", c)
		if _, err := engine.CandidateSelected(c, client); err != nil {
			return err
		}
	case stepMode:
		fmt.Fprintf(out, "> mode %s\n", s.mode)
		return engine.SetValue(ime.TagInputMode, s.mode, client)
	case stepFocusOut:
		fmt.Fprintln(out, "> focus out")
		if _, err := engine.CommitComposition(client); err != nil {
			return err
		}
	case stepSelection:
		fmt.Fprintf(out, "> select range %d,%d\n", s.start, s.length)
		client.buf.Select(s.start, s.length)
	}
	return nil
}

func describe(ev ime.Event) string {
	if ev.Key != ime.KeyNone {
		return ev.Key.String()
	}
	return strconv.Quote(ev.Text)
}
