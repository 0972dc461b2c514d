package view

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/blackjack-tracker/internal/client"
	"github.com/Proton-105/blackjack-tracker/internal/domain"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) CurrentUser(ctx context.Context) (string, bool) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1)
}

func (m *mockAPI) HasToken(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *mockAPI) LoggedInUsername(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockAPI) Wallet(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAPI) Games(ctx context.Context) ([]client.Game, error) {
	args := m.Called(ctx)
	games, _ := args.Get(0).([]client.Game)
	return games, args.Error(1)
}

func (m *mockAPI) DeleteGame(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAPI) AddGames(ctx context.Context, batch []domain.GameInput) ([]client.Game, error) {
	args := m.Called(ctx, batch)
	games, _ := args.Get(0).([]client.Game)
	return games, args.Error(1)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func int64p(v int64) *int64 { return &v }

func TestGuard(t *testing.T) {
	ctx := context.Background()

	anon := &mockAPI{}
	anon.On("CurrentUser", ctx).Return("", false)
	redirected := false
	out := Guard(ctx, anon, func() string { return "secret" }, func() { redirected = true })
	assert.Empty(t, out)
	assert.True(t, redirected)

	user := &mockAPI{}
	user.On("CurrentUser", ctx).Return("alice", true)
	redirected = false
	out = Guard(ctx, user, func() string { return "secret" }, func() { redirected = true })
	assert.Equal(t, "secret", out)
	assert.False(t, redirected)
}

func TestWalletTone(t *testing.T) {
	testCases := []struct {
		name   string
		wallet *int64
		tone   Tone
	}{
		{name: "negative", wallet: int64p(-500), tone: ToneError},
		{name: "zero", wallet: int64p(0), tone: ToneNeutral},
		{name: "positive", wallet: int64p(1200), tone: ToneSuccess},
		{name: "unknown", wallet: nil, tone: ToneNeutral},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.tone, WalletTone(tc.wallet))
		})
	}

	assert.Equal(t, "Wallet: 1,200 Ft", WalletLabel(int64p(1200)))
	assert.Equal(t, "Wallet: -500 Ft", WalletLabel(int64p(-500)))
}

func TestNavbar_RefreshWithoutTokenFetchesNothing(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	api.On("HasToken", ctx).Return(false)

	nav := NewNavbar(api)
	require.NoError(t, nav.Refresh(ctx))

	assert.True(t, nav.Anonymous())
	assert.Equal(t, "/login", nav.Shortcuts()[1].Command)
	api.AssertNotCalled(t, "LoggedInUsername", mock.Anything)
	api.AssertNotCalled(t, "Wallet", mock.Anything)
}

func TestNavbar_Refresh(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	api.On("HasToken", ctx).Return(true)
	api.On("LoggedInUsername", ctx).Return("alice", nil)
	api.On("Wallet", ctx).Return(int64(1200), nil)

	nav := NewNavbar(api)
	require.NoError(t, nav.Refresh(ctx))

	assert.Equal(t, "alice", nav.Username)
	require.NotNil(t, nav.Wallet)
	assert.Equal(t, int64(1200), *nav.Wallet)
	assert.Contains(t, nav.Render(), "Wallet: 1,200 Ft")
	assert.Contains(t, nav.Render(), "/logout")
}

func TestNavbar_WalletFailureLeavesUnknown(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	api.On("HasToken", ctx).Return(true)
	api.On("LoggedInUsername", ctx).Return("alice", nil)
	api.On("Wallet", ctx).Return(int64(0), errors.New("boom"))

	nav := NewNavbar(api)
	assert.Error(t, nav.Refresh(ctx))
	assert.Equal(t, "alice", nav.Username)
	assert.Nil(t, nav.Wallet)
	assert.Equal(t, ToneNeutral, WalletTone(nav.Wallet))
}

func TestTicketForm_SelectPrice(t *testing.T) {
	f := NewTicketForm()
	assert.False(t, f.Open)
	assert.Len(t, f.Groups, 1)

	require.NoError(t, f.SelectPrice(500))
	assert.True(t, f.Open)
	assert.Len(t, f.Groups, 4)

	require.NoError(t, f.SetGroup(0, "1 2 3 4 17 300"))
	require.NoError(t, f.SelectPrice(300))
	require.Len(t, f.Groups, 1)
	assert.True(t, f.Groups[0].Blank())

	assert.ErrorIs(t, f.SelectPrice(400), ErrInvalidPrice)
}

func TestTicketForm_Fields(t *testing.T) {
	f := NewTicketForm()
	require.NoError(t, f.SelectPrice(300))

	_, err := f.Batch()
	assert.ErrorIs(t, err, ErrIncomplete)

	for i, v := range []string{"2", "3", "4", "18", "17"} {
		require.NoError(t, f.SetField(0, FieldNames[i], v))
	}
	_, err = f.Batch()
	assert.ErrorIs(t, err, ErrIncomplete)

	require.NoError(t, f.SetField(0, FieldPrize, "abc"))
	_, err = f.Batch()
	assert.ErrorIs(t, err, ErrIncomplete)

	require.NoError(t, f.SetField(0, FieldPrize, "1000"))
	batch, err := f.Batch()
	require.NoError(t, err)
	assert.Equal(t, []domain.GameInput{{Number1: 2, Number2: 3, Number3: 4, Number4: 18, Dealer: 17, Prize: 1000}}, batch)

	assert.ErrorIs(t, f.SetField(1, FieldPrize, "1"), ErrNoSuchGroup)
	assert.ErrorIs(t, f.SetField(0, "colour", "1"), ErrNoSuchField)
	assert.ErrorIs(t, f.SetGroup(0, "1 2 3"), ErrIncomplete)
}

func TestTicketForm_SubmitSuccess(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	api.On("AddGames", ctx, mock.MatchedBy(func(b []domain.GameInput) bool { return len(b) == 4 })).
		Return(make([]client.Game, 4), nil).Once()

	f := NewTicketForm()
	require.NoError(t, f.SelectPrice(500))
	for i := range f.Groups {
		require.NoError(t, f.SetGroup(i, "1 2 3 4 20 300"))
	}
	assert.Equal(t, -1, f.NextBlank())

	refreshed := 0
	f.OnSubmitted = func(context.Context) { refreshed++ }

	require.NoError(t, f.Submit(ctx, api))
	assert.Equal(t, 1, refreshed)
	assert.False(t, f.Open)
	assert.Len(t, f.Groups, 4)
	assert.Equal(t, 0, f.NextBlank())
	api.AssertExpectations(t)
}

func TestTicketForm_SubmitFailureKeepsGroups(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name string
		err  error
		msg  string
	}{
		{name: "server detail", err: &client.APIError{StatusCode: http.StatusBadRequest, Detail: "Prize must be at least 300"}, msg: "Prize must be at least 300"},
		{name: "transport", err: errors.New("connection refused"), msg: MsgUnexpected},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			api := &mockAPI{}
			api.On("AddGames", ctx, mock.Anything).Return(nil, tc.err)

			f := NewTicketForm()
			require.NoError(t, f.SelectPrice(300))
			require.NoError(t, f.SetGroup(0, "1 2 3 4 20 200"))

			called := false
			f.OnSubmitted = func(context.Context) { called = true }

			assert.Error(t, f.Submit(ctx, api))
			assert.Equal(t, tc.msg, f.Error)
			assert.True(t, f.Open)
			assert.Equal(t, Group{"1", "2", "3", "4", "20", "200"}, f.Groups[0])
			assert.False(t, called)
			assert.Contains(t, f.Render(), tc.msg)
		})
	}
}

func TestGroupByMonth(t *testing.T) {
	games := []client.Game{
		{ID: 3, CreatedAt: day("2024-02-01")},
		{ID: 2, CreatedAt: day("2024-01-20")},
		{ID: 1, CreatedAt: day("2024-01-05")},
	}

	sections := GroupByMonth(games)
	require.Len(t, sections, 2)

	assert.Equal(t, "2024-01", sections[0].Key)
	assert.Equal(t, "January 2024", sections[0].Heading)
	require.Len(t, sections[0].Games, 2)
	assert.Equal(t, int64(2), sections[0].Games[0].ID)
	assert.Equal(t, int64(1), sections[0].Games[1].ID)

	assert.Equal(t, "2024-02", sections[1].Key)
	assert.Equal(t, "February 2024", sections[1].Heading)
	assert.Len(t, sections[1].Games, 1)

	assert.Empty(t, GroupByMonth(nil))
}

func TestNewRow(t *testing.T) {
	win := NewRow(client.Game{ID: 1, Number1: 2, Number2: 3, Number3: 4, Number4: 18, Dealer: 17, Prize: 1000, Win: true, CreatedAt: day("2024-01-05")})
	assert.Equal(t, "+1,000", win.Prize)
	assert.Equal(t, ToneSuccess, win.Tone)
	assert.Equal(t, "2 3 4 18", win.Numbers)
	assert.Equal(t, "2024-01-05", win.Date)

	loss := NewRow(client.Game{ID: 2, Prize: 300, CreatedAt: day("2024-01-05")})
	assert.Equal(t, "300", loss.Prize)
	assert.Equal(t, ToneInfo, loss.Tone)
}

func TestRenderLayouts(t *testing.T) {
	section := GroupByMonth([]client.Game{
		{ID: 7, Number1: 2, Number2: 3, Number3: 4, Number4: 18, Dealer: 17, Prize: 1000, Win: true, CreatedAt: day("2024-01-05")},
	})[0]

	desktop := RenderDesktop(section)
	assert.True(t, strings.HasPrefix(desktop, "January 2024"))
	assert.Contains(t, desktop, "Dealer")
	assert.Contains(t, desktop, "+1,000")

	mobile := RenderMobile(section)
	assert.Contains(t, mobile, "2 3 4 18 vs 17")
	assert.Contains(t, mobile, "#7")
}

func TestHistory_Delete(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		err     error
		message string
	}{
		{name: "not found", err: &client.APIError{StatusCode: http.StatusNotFound, Detail: "Game not found"}, message: MsgGameNotFound},
		{name: "other failure", err: errors.New("timeout"), message: MsgDeleteFailed},
		{name: "success", err: nil, message: ""},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			api := &mockAPI{}
			api.On("DeleteGame", ctx, int64(5)).Return(tc.err)
			api.On("Games", ctx).Return([]client.Game{{ID: 6, CreatedAt: day("2024-01-05")}}, nil)

			h := NewHistory(api)
			err := h.Delete(ctx, 5)
			assert.Equal(t, tc.message, h.Message)

			if tc.err != nil {
				assert.Error(t, err)
				api.AssertNotCalled(t, "Games", mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Len(t, h.Games, 1)
		})
	}
}

func TestDashboard_MutationsRefreshNavbarAndHistory(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	api.On("HasToken", ctx).Return(true)
	api.On("LoggedInUsername", ctx).Return("alice", nil)
	api.On("Wallet", ctx).Return(int64(-500), nil)
	api.On("Games", ctx).Return([]client.Game{{ID: 1, Prize: 300, CreatedAt: day("2024-03-02")}}, nil)
	api.On("AddGames", ctx, mock.Anything).Return(make([]client.Game, 1), nil)
	api.On("DeleteGame", ctx, int64(1)).Return(nil)

	d := NewDashboard(api)
	require.NoError(t, d.Load(ctx))
	assert.Contains(t, d.Render(), "March 2024")
	assert.Equal(t, ToneError, WalletTone(d.Navbar.Wallet))

	require.NoError(t, d.Form.SelectPrice(300))
	require.NoError(t, d.Form.SetGroup(0, "1 2 3 4 20 300"))
	require.NoError(t, d.Form.Submit(ctx, api))
	require.NoError(t, d.History.Delete(ctx, 1))
	require.NoError(t, d.RefreshErr())

	api.AssertNumberOfCalls(t, "Games", 3)
	api.AssertNumberOfCalls(t, "Wallet", 3)
}
