package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// API is everything the dashboard needs from the client.
type API interface {
	NavbarAPI
	GamesAPI
	Submitter
}

// Dashboard composes the navbar, the ticket form and the history.
type Dashboard struct {
	Navbar  *Navbar
	Form    *TicketForm
	History *History

	lastErr error
}

// NewDashboard wires the children so that every mutation refreshes the
// navbar and the history.
func NewDashboard(api API) *Dashboard {
	d := &Dashboard{
		Navbar:  NewNavbar(api),
		Form:    NewTicketForm(),
		History: NewHistory(api),
	}
	d.Form.OnSubmitted = d.onMutation
	d.History.OnDeleted = d.onMutation
	return d
}

// Load fetches everything the dashboard shows.
func (d *Dashboard) Load(ctx context.Context) error {
	return d.OnMutation(ctx)
}

// OnMutation refreshes the navbar and the history.
func (d *Dashboard) OnMutation(ctx context.Context) error {
	return errors.Join(d.Navbar.Refresh(ctx), d.History.Load(ctx))
}

func (d *Dashboard) onMutation(ctx context.Context) {
	d.lastErr = d.OnMutation(ctx)
}

// RefreshErr returns the error of the last refresh triggered by a mutation.
func (d *Dashboard) RefreshErr() error {
	return d.lastErr
}

// Render shows the navbar, a short summary and the latest month.
func (d *Dashboard) Render() string {
	parts := []string{d.Navbar.Render()}

	if d.History.Message != "" {
		parts = append(parts, ToneError.Marker()+" "+d.History.Message)
	}

	sections := d.History.Sections()
	if len(sections) == 0 {
		parts = append(parts, "No games recorded yet. Use /ticket to add one.")
	} else {
		latest := sections[len(sections)-1]
		parts = append(parts, summary(d.History), RenderMobile(latest))
	}

	return strings.Join(parts, "\n\n")
}

func summary(h *History) string {
	var wins int
	var won int64
	for _, g := range h.Games {
		if g.Win {
			wins++
			won += g.Prize
		}
	}
	return fmt.Sprintf("Games: %d · Wins: %d · Won: %s Ft", len(h.Games), wins, formatAmount(won))
}
