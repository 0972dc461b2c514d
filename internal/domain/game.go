package domain

import "time"

const (
	PriceSingle int64 = 300
	PriceQuad   int64 = 500

	MinNumber       = 1
	MaxNumber       = 21
	MinPrize  int64 = 300
)

// TimestampLayout is the fixed-width UTC layout used to persist game timestamps
// so that lexical order matches chronological order in every SQL dialect.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Game is one recorded blackjack hand. Games are immutable once created.
type Game struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	TicketID  string    `json:"ticketId"`
	Number1   int       `json:"number1"`
	Number2   int       `json:"number2"`
	Number3   int       `json:"number3"`
	Number4   int       `json:"number4"`
	Dealer    int       `json:"dealer"`
	Prize     int64     `json:"prize"`
	Win       bool      `json:"win"`
	CreatedAt time.Time `json:"createdAt"`
}

// GameInput is the client-supplied part of a game.
type GameInput struct {
	Number1 int   `json:"number1"`
	Number2 int   `json:"number2"`
	Number3 int   `json:"number3"`
	Number4 int   `json:"number4"`
	Dealer  int   `json:"dealer"`
	Prize   int64 `json:"prize"`
}

// Numbers returns the four dealt numbers in order.
func (g GameInput) Numbers() [4]int {
	return [4]int{g.Number1, g.Number2, g.Number3, g.Number4}
}

// IsWin reports whether any dealt number beats the dealer.
func (g GameInput) IsWin() bool {
	for _, n := range g.Numbers() {
		if n > g.Dealer {
			return true
		}
	}
	return false
}

// TicketPrice returns the price of a ticket holding games games.
func TicketPrice(games int) (int64, bool) {
	switch games {
	case 1:
		return PriceSingle, true
	case 4:
		return PriceQuad, true
	default:
		return 0, false
	}
}

// GamesForPrice is the inverse of TicketPrice.
func GamesForPrice(price int64) (int, bool) {
	switch price {
	case PriceSingle:
		return 1, true
	case PriceQuad:
		return 4, true
	default:
		return 0, false
	}
}

// Settle returns the wallet change for a ticket: the prizes of its winning
// games minus the ticket price. ok is false when the batch size is invalid.
func Settle(batch []GameInput) (delta int64, ok bool) {
	price, ok := TicketPrice(len(batch))
	if !ok {
		return 0, false
	}

	for _, g := range batch {
		if g.IsWin() {
			delta += g.Prize
		}
	}

	return delta - price, true
}

// MonthKey is the YYYY-MM grouping key of t in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
