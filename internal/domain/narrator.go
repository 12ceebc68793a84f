package domain

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var defaultPrinter = message.NewPrinter(language.English)

// Narrator renders the observation strings appended to a daily total.
type Narrator struct {
	printer *message.Printer
}

// NewNarrator returns a Narrator formatting amounts for tag.
func NewNarrator(tag language.Tag) Narrator {
	return Narrator{printer: message.NewPrinter(tag)}
}

func (n Narrator) amount(v float64) string {
	p := n.printer
	if p == nil {
		p = defaultPrinter
	}
	return p.Sprint(number.Decimal(v, number.Scale(2)))
}

func withNote(s, note string) string {
	if note == "" {
		return s
	}
	return s + ": " + note
}

// Opened describes the creation of a day at start.
func (n Narrator) Opened(start float64, note string) string {
	return withNote("opened at "+n.amount(start), note)
}

// ValueChanged describes a change of the current value.
func (n Narrator) ValueChanged(old, updated float64, note string) string {
	return withNote(n.amount(old)+" → "+n.amount(updated), note)
}

// Closed describes the close of a day at final.
func (n Narrator) Closed(final float64, note string) string {
	return withNote("closed at "+n.amount(final), note)
}
