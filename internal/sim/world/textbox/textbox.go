// Package textbox is the dialog shown by signs and NPCs. It is a plain value:
// snapshots are clones and restoring installs a fresh clone.
package textbox

import (
	"slices"

	"timewarp.dev/internal/sim/input"
)

type Textbox struct {
	Speaker  string
	Text     string
	Shown    int
	Choices  []string
	Selected int
	Input    string
}

func New(speaker, text string, choices ...string) *Textbox {
	return &Textbox{Speaker: speaker, Text: text, Choices: slices.Clone(choices)}
}

func (t *Textbox) Clone() *Textbox {
	if t == nil {
		return nil
	}
	c := *t
	c.Choices = slices.Clone(t.Choices)
	return &c
}

func (t *Textbox) Done() bool { return t.Shown >= len(t.Text) }

// Visible is the part of the text revealed so far.
func (t *Textbox) Visible() string { return t.Text[:min(t.Shown, len(t.Text))] }

// Answer is the selected choice, or "" when there are none.
func (t *Textbox) Answer() string {
	if len(t.Choices) == 0 {
		return ""
	}
	return t.Choices[t.Selected]
}

// Step reveals one more character and handles newly pressed keys. It
// reports whether the dialog was dismissed.
func (t *Textbox) Step(pressed input.Keys) bool {
	if !t.Done() {
		t.Shown++
	}
	if n := len(t.Choices); n > 0 {
		if pressed.Has(input.KeyS) {
			t.Selected = (t.Selected + 1) % n
		}
		if pressed.Has(input.KeyW) {
			t.Selected = (t.Selected + n - 1) % n
		}
	}
	if !pressed.Has(input.KeyE) {
		return false
	}
	if !t.Done() {
		t.Shown = len(t.Text)
		return false
	}
	return true
}

// Type appends text typed into an input prompt.
func (t *Textbox) Type(s string) { t.Input += s }

func (t *Textbox) Backup() *Textbox { return t.Clone() }

func (t *Textbox) Restore(s *Textbox) { *t = *s.Clone() }
