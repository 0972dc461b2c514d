package view

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Proton-105/blackjack-tracker/internal/client"
	"github.com/Proton-105/blackjack-tracker/internal/domain"
)

const (
	MsgGameNotFound = "Game not found."
	MsgDeleteFailed = "Failed to delete game."
)

// GamesAPI is the part of the client the history reads and mutates.
type GamesAPI interface {
	Games(ctx context.Context) ([]client.Game, error)
	DeleteGame(ctx context.Context, id int64) error
}

// Row is one rendered game.
type Row struct {
	ID      int64
	Date    string
	Numbers string
	Dealer  int
	Prize   string
	Tone    Tone
}

// NewRow formats a game. Wins show the prize with a plus sign.
func NewRow(g client.Game) Row {
	n := g.Numbers()
	row := Row{
		ID:      g.ID,
		Date:    g.CreatedAt.UTC().Format("2006-01-02"),
		Numbers: fmt.Sprintf("%d %d %d %d", n[0], n[1], n[2], n[3]),
		Dealer:  g.Dealer,
		Prize:   formatAmount(g.Prize),
		Tone:    ToneInfo,
	}
	if g.Win {
		row.Prize = "+" + row.Prize
		row.Tone = ToneSuccess
	}
	return row
}

// Section holds the games of one month.
type Section struct {
	Key     string
	Heading string
	Games   []client.Game
}

// Rows formats the games of the section in their fetched order.
func (s Section) Rows() []Row {
	rows := make([]Row, len(s.Games))
	for i, g := range s.Games {
		rows[i] = NewRow(g)
	}
	return rows
}

// GroupByMonth groups games by YYYY-MM. Sections are sorted by key and keep
// the input order of their games.
func GroupByMonth(games []client.Game) []Section {
	index := make(map[string]int)
	var sections []Section

	for _, g := range games {
		key := domain.MonthKey(g.CreatedAt)
		i, ok := index[key]
		if !ok {
			i = len(sections)
			index[key] = i
			sections = append(sections, Section{Key: key, Heading: monthHeading(key)})
		}
		sections[i].Games = append(sections[i].Games, g)
	}

	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Key < sections[j].Key })
	return sections
}

func monthHeading(key string) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	return t.Format("January 2006")
}

// History lists the games of the user.
type History struct {
	api GamesAPI

	Games   []client.Game
	Message string
	Err     string

	// OnDeleted runs after a game was removed.
	OnDeleted func(ctx context.Context)
}

// NewHistory constructs a History.
func NewHistory(api GamesAPI) *History {
	return &History{api: api}
}

// Load fetches every game. A failure keeps the previous list.
func (h *History) Load(ctx context.Context) error {
	games, err := h.api.Games(ctx)
	if err != nil {
		h.Err = failureMessage(err)
		return fmt.Errorf("load history: %w", err)
	}

	h.Games = games
	h.Err = ""
	return nil
}

// Refresh reloads the list after a mutation elsewhere.
func (h *History) Refresh(ctx context.Context) error {
	return h.Load(ctx)
}

// Sections groups the loaded games by month.
func (h *History) Sections() []Section {
	return GroupByMonth(h.Games)
}

// Delete removes one game and reloads. Message is set on failure.
func (h *History) Delete(ctx context.Context, id int64) error {
	h.Message = ""

	if err := h.api.DeleteGame(ctx, id); err != nil {
		if client.IsNotFound(err) {
			h.Message = MsgGameNotFound
		} else {
			h.Message = MsgDeleteFailed
		}
		return fmt.Errorf("delete game %d: %w", id, err)
	}

	if h.OnDeleted != nil {
		h.OnDeleted(ctx)
		return nil
	}
	return h.Load(ctx)
}

// RenderDesktop renders a section as a table with every column.
func RenderDesktop(s Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.Heading)
	fmt.Fprintf(&b, "%-10s  %-11s  %6s  %8s\n", "Date", "Numbers", "Dealer", "Prize")

	for _, r := range s.Rows() {
		fmt.Fprintf(&b, "%-10s  %-11s  %6d  %8s %s\n", r.Date, r.Numbers, r.Dealer, r.Prize, r.Tone.Marker())
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderMobile renders a section as compact cards.
func RenderMobile(s Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.Heading)

	for _, r := range s.Rows() {
		fmt.Fprintf(&b, "\n%s %s\n%s vs %d\n", r.Tone.Marker(), r.Prize, r.Numbers, r.Dealer)
		fmt.Fprintf(&b, "%s · #%d\n", r.Date, r.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}
