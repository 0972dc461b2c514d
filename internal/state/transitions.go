package state

// validTransitions contains the permitted non-emergency transitions in the FSM.
var validTransitions = map[State][]State{
	StateIdle: {
		StateLoginUsername,
		StateRegisterUsername,
		StateTicketPrice,
	},
	StateLoginUsername: {
		StateLoginPassword,
	},
	StateRegisterUsername: {
		StateRegisterPassword,
	},
	StateRegisterPassword: {
		StateRegisterConfirm,
	},
	StateRegisterConfirm: {
		StateRegisterPassword,
	},
	StateTicketPrice: {
		StateTicketGames,
	},
	StateTicketGames: {
		StateTicketGames,
		StateTicketReview,
		StateTicketPrice,
	},
	StateTicketReview: {
		StateTicketReview,
		StateTicketPrice,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
// Any state may fall back to idle or error.
func IsTransitionAllowed(from, to State) bool {
	if to == StateError || to == StateIdle {
		return true
	}

	for _, state := range validTransitions[from] {
		if state == to {
			return true
		}
	}

	return false
}
