package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	apperrors "github.com/Proton-105/blackjack-tracker/internal/errors"
)

const maxBodyBytes = 1 << 20

type detailResponse struct {
	Detail string `json:"detail"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

// writeError logs err through the error handler and answers with its status and user message.
func (a *api) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	msg, _ := a.errs.Handle(ctx, err)
	writeDetail(w, apperrors.HTTPStatus(err), msg)
}

// decodeJSON reads a single JSON value from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// readCredentials accepts an OAuth2 style form body or a JSON object.
func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if isJSON(r) {
		if err := decodeJSON(r, &c); err != nil {
			return c, err
		}
		return c, nil
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return c, fmt.Errorf("parse form: %w", err)
	}
	c.Username = r.PostForm.Get("username")
	c.Password = r.PostForm.Get("password")
	return c, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("missing bearer token")
	}
	return strings.TrimSpace(token), nil
}
