package client

import "time"

// Game is a recorded game as returned by the API.
type Game struct {
	ID        int64     `json:"id" validate:"required"`
	TicketID  string    `json:"ticketId"`
	Number1   int       `json:"number1" validate:"gte=0"`
	Number2   int       `json:"number2" validate:"gte=0"`
	Number3   int       `json:"number3" validate:"gte=0"`
	Number4   int       `json:"number4" validate:"gte=0"`
	Dealer    int       `json:"dealer" validate:"gte=0"`
	Prize     int64     `json:"prize" validate:"gte=0"`
	Win       bool      `json:"win"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
}

// Numbers returns the four dealt numbers in order.
func (g Game) Numbers() [4]int {
	return [4]int{g.Number1, g.Number2, g.Number3, g.Number4}
}

type tokenResponse struct {
	AccessToken string `json:"access_token" validate:"required"`
	TokenType   string `json:"token_type" validate:"required"`
}

type meResponse struct {
	Username string `json:"username" validate:"required"`
}

type walletResponse struct {
	Wallet *int64 `json:"wallet" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message" validate:"required"`
}

type walletUpdateResponse struct {
	Message string `json:"message" validate:"required"`
	Wallet  *int64 `json:"wallet" validate:"required"`
}
