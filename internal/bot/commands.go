package bot

// Command constants for Telegram bot commands.
const (
	CommandStart     = "/start"
	CommandLogin     = "/login"
	CommandRegister  = "/register"
	CommandLogout    = "/logout"
	CommandDashboard = "/dashboard"
	CommandTicket    = "/ticket"
	CommandHistory   = "/history"
	CommandWallet    = "/wallet"
	CommandCancel    = "/cancel"
)

// commandDescriptions is the command menu shown by Telegram clients.
var commandDescriptions = []struct {
	Command     string
	Description string
}{
	{CommandStart, "Home"},
	{CommandDashboard, "Wallet, totals and the latest month"},
	{CommandTicket, "Record a ticket"},
	{CommandHistory, "Games by month"},
	{CommandWallet, "Show or adjust the wallet"},
	{CommandLogin, "Log in"},
	{CommandRegister, "Create an account"},
	{CommandLogout, "Log out"},
	{CommandCancel, "Abandon the current step"},
}
