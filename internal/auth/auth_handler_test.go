package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Msocha19/SSBD-TUL-2023/internal/repository/inmem"
)

func newTestHandler(store *inmem.Store) *Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(newTestService(store, &mockNotifier{}), log)
}

func loginRequest(login, password, remoteAddr string) *http.Request {
	body, _ := json.Marshal(LoginRequest{Login: login, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(string(body)))
	req.RemoteAddr = remoteAddr
	return req
}

func TestLoginAcceptsLongLogin(t *testing.T) {
	store := inmem.NewStore()
	login := strings.Repeat("a", 100)
	seedAccount(t, store, login)
	handler := newTestHandler(store)

	rr := httptest.NewRecorder()
	handler.Login(rr, loginRequest(login, testPassword, "10.0.0.1:4242"))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rr.Code, rr.Body.String())
	}
}

func TestLoginRecordsBareClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		wantIP     string
	}{
		{name: "ipv4 with port", remoteAddr: "10.0.0.1:4242", wantIP: "10.0.0.1"},
		{name: "ipv6 with port", remoteAddr: "[2001:db8:85a3:8d3:1319:8a2e:370:7348]:50512", wantIP: "2001:db8:85a3:8d3:1319:8a2e:370:7348"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := inmem.NewStore()
			account := seedAccount(t, store, "jkowalski")
			handler := newTestHandler(store)

			rr := httptest.NewRecorder()
			handler.Login(rr, loginRequest("jkowalski", testPassword, tc.remoteAddr))

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}
			stored, err := store.Accounts().GetByID(context.Background(), account.ID)
			if err != nil {
				t.Fatalf("GetByID failed: %v", err)
			}
			if stored.Activity.LastSuccessfulLoginIP == nil || *stored.Activity.LastSuccessfulLoginIP != tc.wantIP {
				t.Errorf("recorded IP = %v, want %s", stored.Activity.LastSuccessfulLoginIP, tc.wantIP)
			}
		})
	}
}

func TestLoginWrongPasswordReturns401(t *testing.T) {
	store := inmem.NewStore()
	seedAccount(t, store, "jkowalski")
	handler := newTestHandler(store)

	rr := httptest.NewRecorder()
	handler.Login(rr, loginRequest("jkowalski", "wrong-password", "10.0.0.1:4242"))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}
