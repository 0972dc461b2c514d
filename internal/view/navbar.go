package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NavbarAPI is the part of the client the navbar reads.
type NavbarAPI interface {
	HasToken(ctx context.Context) bool
	LoggedInUsername(ctx context.Context) (string, error)
	Wallet(ctx context.Context) (int64, error)
}

// Shortcut is a navigation entry.
type Shortcut struct {
	Label   string
	Command string
}

var (
	sessionShortcuts = []Shortcut{
		{Label: "Home", Command: "/start"},
		{Label: "Dashboard", Command: "/dashboard"},
		{Label: "Logout", Command: "/logout"},
	}
	anonymousShortcuts = []Shortcut{
		{Label: "Home", Command: "/start"},
		{Label: "Login", Command: "/login"},
		{Label: "Register", Command: "/register"},
	}
)

// Navbar shows who is logged in and their wallet.
type Navbar struct {
	api NavbarAPI

	Username string
	Wallet   *int64
}

// NewNavbar constructs a Navbar.
func NewNavbar(api NavbarAPI) *Navbar {
	return &Navbar{api: api}
}

// Refresh reloads the username and the wallet. Nothing is fetched without a token.
func (n *Navbar) Refresh(ctx context.Context) error {
	n.Username = ""
	n.Wallet = nil

	if !n.api.HasToken(ctx) {
		return nil
	}

	username, userErr := n.api.LoggedInUsername(ctx)
	if userErr == nil {
		n.Username = username
	}

	wallet, walletErr := n.api.Wallet(ctx)
	if walletErr == nil {
		n.Wallet = &wallet
	}

	if err := errors.Join(userErr, walletErr); err != nil {
		return fmt.Errorf("refresh navbar: %w", err)
	}
	return nil
}

// Anonymous reports whether the navbar shows the logged out view.
func (n *Navbar) Anonymous() bool {
	return n.Username == ""
}

// Shortcuts lists the navigation entries for the current view.
func (n *Navbar) Shortcuts() []Shortcut {
	if n.Anonymous() {
		return anonymousShortcuts
	}
	return sessionShortcuts
}

// WalletTone colours a balance. Unknown balances are neutral.
func WalletTone(wallet *int64) Tone {
	switch {
	case wallet == nil || *wallet == 0:
		return ToneNeutral
	case *wallet < 0:
		return ToneError
	default:
		return ToneSuccess
	}
}

// WalletLabel formats a balance as "Wallet: 1,200 Ft".
func WalletLabel(wallet *int64) string {
	if wallet == nil {
		return "Wallet: - Ft"
	}
	return fmt.Sprintf("Wallet: %s Ft", formatAmount(*wallet))
}

func (n *Navbar) Render() string {
	var b strings.Builder

	if n.Anonymous() {
		b.WriteString("Not logged in.")
	} else {
		fmt.Fprintf(&b, "👤 %s\n%s %s", n.Username, WalletTone(n.Wallet).Marker(), WalletLabel(n.Wallet))
	}

	b.WriteString("\n")
	for i, s := range n.Shortcuts() {
		if i > 0 {
			b.WriteString(" · ")
		}
		fmt.Fprintf(&b, "%s %s", s.Command, s.Label)
	}

	return b.String()
}
