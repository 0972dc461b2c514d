package view

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Proton-105/blackjack-tracker/internal/client"
	"github.com/Proton-105/blackjack-tracker/internal/domain"
)

// Field names of one game group, in entry order.
const (
	FieldNumber1 = "number1"
	FieldNumber2 = "number2"
	FieldNumber3 = "number3"
	FieldNumber4 = "number4"
	FieldDealer  = "dealer"
	FieldPrize   = "prize"
)

// FieldNames lists the fields of a group in entry order.
var FieldNames = []string{FieldNumber1, FieldNumber2, FieldNumber3, FieldNumber4, FieldDealer, FieldPrize}

var (
	ErrInvalidPrice = errors.New("price must be 300 or 500")
	ErrNoSuchGroup  = errors.New("no such game")
	ErrNoSuchField  = errors.New("no such field")
	ErrIncomplete   = errors.New("every field is required and must be a number")
)

// Group holds the raw text of one game, indexed like FieldNames.
type Group [6]string

// Blank reports whether nothing was entered.
func (g Group) Blank() bool {
	for _, v := range g {
		if v != "" {
			return false
		}
	}
	return true
}

func (g Group) input() (domain.GameInput, error) {
	var values [6]int
	for i, raw := range g {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return domain.GameInput{}, fmt.Errorf("%w: %s", ErrIncomplete, FieldNames[i])
		}
		values[i] = v
	}

	return domain.GameInput{
		Number1: values[0],
		Number2: values[1],
		Number3: values[2],
		Number4: values[3],
		Dealer:  values[4],
		Prize:   int64(values[5]),
	}, nil
}

// Submitter records a ticket.
type Submitter interface {
	AddGames(ctx context.Context, batch []domain.GameInput) ([]client.Game, error)
}

// TicketForm collects one ticket: 1 game at 300 or 4 games at 500.
type TicketForm struct {
	Price  int64
	Groups []Group
	Error  string
	Open   bool

	// OnSubmitted runs after a successful submission.
	OnSubmitted func(ctx context.Context)
}

// NewTicketForm returns a closed form priced for a single game.
func NewTicketForm() *TicketForm {
	f := &TicketForm{}
	_ = f.SelectPrice(domain.PriceSingle)
	f.Open = false
	return f
}

// SelectPrice opens the form with blank groups for price.
func (f *TicketForm) SelectPrice(price int64) error {
	games, ok := domain.GamesForPrice(price)
	if !ok {
		return ErrInvalidPrice
	}

	f.Price = price
	f.Groups = make([]Group, games)
	f.Error = ""
	f.Open = true
	return nil
}

// SetField edits one field of a group. group is zero based.
func (f *TicketForm) SetField(group int, field, value string) error {
	if group < 0 || group >= len(f.Groups) {
		return ErrNoSuchGroup
	}

	for i, name := range FieldNames {
		if name == field {
			f.Groups[group][i] = strings.TrimSpace(value)
			return nil
		}
	}
	return ErrNoSuchField
}

// SetGroup fills a group from a line of six whitespace separated values.
func (f *TicketForm) SetGroup(group int, line string) error {
	if group < 0 || group >= len(f.Groups) {
		return ErrNoSuchGroup
	}

	parts := strings.Fields(line)
	if len(parts) != len(FieldNames) {
		return fmt.Errorf("%w: expected %d values, got %d", ErrIncomplete, len(FieldNames), len(parts))
	}

	var g Group
	for i, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			return fmt.Errorf("%w: %s", ErrIncomplete, FieldNames[i])
		}
		g[i] = p
	}
	f.Groups[group] = g
	return nil
}

// NextBlank returns the index of the first group not filled yet, or -1.
func (f *TicketForm) NextBlank() int {
	for i, g := range f.Groups {
		if g.Blank() {
			return i
		}
	}
	return -1
}

// Batch converts the groups to games. Every field must be present and numeric.
func (f *TicketForm) Batch() ([]domain.GameInput, error) {
	batch := make([]domain.GameInput, 0, len(f.Groups))
	for i, g := range f.Groups {
		in, err := g.input()
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i+1, err)
		}
		batch = append(batch, in)
	}
	return batch, nil
}

// Submit sends the whole ticket in one call. On failure the groups are kept
// and Error holds the reason.
func (f *TicketForm) Submit(ctx context.Context, submitter Submitter) error {
	batch, err := f.Batch()
	if err != nil {
		f.Error = err.Error()
		return err
	}

	if _, err := submitter.AddGames(ctx, batch); err != nil {
		f.Error = failureMessage(err)
		return fmt.Errorf("submit ticket: %w", err)
	}

	_ = f.SelectPrice(f.Price)
	f.Open = false
	if f.OnSubmitted != nil {
		f.OnSubmitted(ctx)
	}
	return nil
}

func (f *TicketForm) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket: %s Ft, %d game(s)\n", formatAmount(f.Price), len(f.Groups))

	for i, g := range f.Groups {
		fmt.Fprintf(&b, "%d. ", i+1)
		if g.Blank() {
			b.WriteString("-\n")
			continue
		}
		fmt.Fprintf(&b, "%s %s %s %s | dealer %s | prize %s\n", orDash(g[0]), orDash(g[1]), orDash(g[2]), orDash(g[3]), orDash(g[4]), orDash(g[5]))
	}

	if f.Error != "" {
		fmt.Fprintf(&b, "%s %s\n", ToneError.Marker(), f.Error)
	}
	return strings.TrimRight(b.String(), "\n")
}

func failureMessage(err error) string {
	if detail := client.Detail(err); detail != "" {
		return detail
	}
	return MsgUnexpected
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
