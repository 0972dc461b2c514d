package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Proton-105/blackjack-tracker/internal/auth"
	"github.com/Proton-105/blackjack-tracker/internal/domain"
	"github.com/Proton-105/blackjack-tracker/internal/idempotency"
	"github.com/Proton-105/blackjack-tracker/internal/tracker"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	msgRegistered   = "User registered successfully!"
	msgGameDeleted  = "Game deleted successfully!"
	msgWalletUpdate = "Wallet updated successfully!"
	msgInvalidBody  = "Invalid request body"
	msgInProgress   = "A request with this Idempotency-Key is already being processed"
)

type usernameKey struct{}

func usernameFrom(ctx context.Context) string {
	name, _ := ctx.Value(usernameKey{}).(string)
	return name
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type meResponse struct {
	Username string `json:"username"`
}

type walletResponse struct {
	Wallet int64 `json:"wallet"`
}

type walletUpdateResponse struct {
	Message string `json:"message"`
	Wallet  int64  `json:"wallet"`
}

type deleteGameRequest struct {
	ID *int64 `json:"id"`
}

type walletUpdateRequest struct {
	Price *int64 `json:"price"`
}

func (a *api) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, tracker.MsgInvalidToken)
			return
		}

		username, err := a.svc.Authenticate(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			a.writeError(r.Context(), w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), usernameKey{}, username)))
	})
}

func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	if err := a.probes.Liveness(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) readyz(w http.ResponseWriter, r *http.Request) {
	checks, err := a.probes.Readiness(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": err.Error(), "checks": checks})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "checks": checks})
}

func (a *api) register(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := a.svc.Register(r.Context(), creds.Username, creds.Password); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgRegistered})
}

func (a *api) token(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	token, err := a.svc.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: auth.TokenType})
}

func (a *api) me(w http.ResponseWriter, r *http.Request) {
	username, err := a.svc.Me(r.Context(), usernameFrom(r.Context()))
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Username: username})
}

func (a *api) wallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := a.svc.Wallet(r.Context(), usernameFrom(r.Context()))
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse{Wallet: wallet})
}

func (a *api) listGames(w http.ResponseWriter, r *http.Request) {
	games, err := a.svc.ListGames(r.Context(), usernameFrom(r.Context()))
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (a *api) addGames(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := usernameFrom(ctx)

	var batch []domain.GameInput
	if err := decodeJSON(r, &batch); err != nil {
		writeDetail(w, http.StatusBadRequest, tracker.MsgInvalidGameData)
		return
	}

	create := func(ctx context.Context) ([]byte, error) {
		created, err := a.svc.AddGames(ctx, username, batch)
		if err != nil {
			return nil, err
		}
		return json.Marshal(created)
	}

	key := r.Header.Get(IdempotencyHeader)
	if key == "" || a.idem == nil {
		body, err := create(ctx)
		if err != nil {
			a.writeError(ctx, w, err)
			return
		}
		writeRawJSON(w, http.StatusCreated, body)
		return
	}

	res, err := a.idem.Execute(ctx, idempotency.Key(username, r.Method, r.URL.Path, key), a.idemTTL, create)
	if err != nil {
		if errors.Is(err, idempotency.ErrRequestInProgress) {
			writeDetail(w, http.StatusConflict, msgInProgress)
			return
		}
		a.writeError(ctx, w, err)
		return
	}

	if res.FromCache {
		a.log.Info("replayed idempotent ticket", slog.String("username", username))
		w.Header().Set(ReplayedHeader, "true")
	}
	writeRawJSON(w, http.StatusCreated, res.Response)
}

func (a *api) deleteGame(w http.ResponseWriter, r *http.Request) {
	var req deleteGameRequest
	if err := decodeJSON(r, &req); err != nil || req.ID == nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := a.svc.DeleteGame(r.Context(), usernameFrom(r.Context()), *req.ID); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgGameDeleted})
}

func (a *api) updateWallet(w http.ResponseWriter, r *http.Request) {
	var req walletUpdateRequest
	if err := decodeJSON(r, &req); err != nil || req.Price == nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	wallet, err := a.svc.AdjustWallet(r.Context(), usernameFrom(r.Context()), *req.Price)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, walletUpdateResponse{Message: msgWalletUpdate, Wallet: wallet})
}
