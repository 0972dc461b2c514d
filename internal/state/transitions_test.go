package state

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "idle to login", from: StateIdle, to: StateLoginUsername, expected: true},
		{name: "idle to register", from: StateIdle, to: StateRegisterUsername, expected: true},
		{name: "idle to ticket", from: StateIdle, to: StateTicketPrice, expected: true},
		{name: "login username to password", from: StateLoginUsername, to: StateLoginPassword, expected: true},
		{name: "register password to confirm", from: StateRegisterPassword, to: StateRegisterConfirm, expected: true},
		{name: "confirm mismatch back to password", from: StateRegisterConfirm, to: StateRegisterPassword, expected: true},
		{name: "ticket games keeps collecting", from: StateTicketGames, to: StateTicketGames, expected: true},
		{name: "ticket games to review", from: StateTicketGames, to: StateTicketReview, expected: true},
		{name: "review correction", from: StateTicketReview, to: StateTicketReview, expected: true},
		{name: "idle to review invalid", from: StateIdle, to: StateTicketReview, expected: false},
		{name: "login to ticket invalid", from: StateLoginPassword, to: StateTicketGames, expected: false},
		{name: "unknown state to login invalid", from: State("unknown"), to: StateLoginUsername, expected: false},
		{name: "any state to idle emergency", from: State("whatever"), to: StateIdle, expected: true},
		{name: "any state to error emergency", from: StateTicketReview, to: StateError, expected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}
