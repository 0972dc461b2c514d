package handlers

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/view"
)

const msgWalletUsage = "Usage: /wallet or /wallet <amount>, e.g. /wallet -300"

// NewWalletHandler shows the wallet. "/wallet <amount>" adds amount first.
func NewWalletHandler(clients Clients, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := Context(c)
		api := clients(ChatID(c))

		if args := strings.Fields(c.Text()); len(args) > 1 {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || len(args) > 2 {
				return c.Send(msgWalletUsage)
			}

			wallet, err := api.AdjustWallet(ctx, amount)
			if err != nil {
				return c.Send(failureText(err, MsgUnexpected))
			}
			log.Info("wallet adjusted from chat", slog.Int64("chat_id", ChatID(c)), slog.Int64("amount", amount))
			return c.Send(walletLine(&wallet))
		}

		wallet, err := api.Wallet(ctx)
		if err != nil {
			return c.Send(failureText(err, MsgUnexpected))
		}
		return c.Send(walletLine(&wallet))
	}
}

func walletLine(wallet *int64) string {
	return fmt.Sprintf("%s %s", view.WalletTone(wallet).Marker(), view.WalletLabel(wallet))
}
