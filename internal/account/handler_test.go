package account

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Msocha19/SSBD-TUL-2023/internal/api"
	"github.com/Msocha19/SSBD-TUL-2023/internal/auth"
	appctx "github.com/Msocha19/SSBD-TUL-2023/internal/context"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository/inmem"
)

func newTestHandler(store *inmem.Store) *Handler {
	svc := newTestService(store, &mockNotifier{})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(svc, auth.NewPasswordPolicy(), log)
}

func callerRequest(method, target, login, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := appctx.WithCaller(req.Context(), login, []repository.AccessType{repository.AccessOwner})
	return req.WithContext(ctx)
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) api.Response {
	t.Helper()
	var resp api.Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response envelope: %v", err)
	}
	return resp
}

func TestGetMeSetsETag(t *testing.T) {
	store := inmem.NewStore()
	seedAccount(t, store, "wlodek", ownerLevel())
	handler := newTestHandler(store)

	rr := httptest.NewRecorder()
	handler.GetMe(rr, callerRequest(http.MethodGet, "/accounts/me", "wlodek", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if etag := rr.Header().Get("ETag"); etag != `"0"` {
		t.Errorf("ETag = %q, want %q", etag, `"0"`)
	}
}

func TestEditMeIfMatchHeader(t *testing.T) {
	body := `{"firstName":"Anna","lastName":"Nowak","accessLevels":[{"level":"OWNER","version":0}]}`

	tests := []struct {
		name     string
		ifMatch  string
		status   int
		wantCode string
	}{
		{name: "missing header", ifMatch: "", status: http.StatusBadRequest, wantCode: api.CodeValidationError},
		{name: "malformed header", ifMatch: `"abc"`, status: http.StatusBadRequest, wantCode: api.CodeValidationError},
		{name: "stale version", ifMatch: `"99"`, status: http.StatusConflict, wantCode: api.CodeOptimisticLock},
		{name: "current version", ifMatch: `"0"`, status: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := inmem.NewStore()
			seedAccount(t, store, "wlodek", ownerLevel())
			handler := newTestHandler(store)

			req := callerRequest(http.MethodPut, "/accounts/me", "wlodek", body)
			if tc.ifMatch != "" {
				req.Header.Set("If-Match", tc.ifMatch)
			}
			rr := httptest.NewRecorder()
			handler.EditMe(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
			if tc.wantCode != "" {
				resp := decodeEnvelope(t, rr)
				if resp.Error == nil || resp.Error.Code != tc.wantCode {
					t.Errorf("error = %+v, want code %s", resp.Error, tc.wantCode)
				}
			}
		})
	}
}

func TestEditMeTamperedLevelVersion(t *testing.T) {
	store := inmem.NewStore()
	seedAccount(t, store, "wlodek", ownerLevel())
	handler := newTestHandler(store)

	body := `{"firstName":"Anna","lastName":"Nowak","accessLevels":[{"level":"OWNER","version":5}]}`
	req := callerRequest(http.MethodPut, "/accounts/me", "wlodek", body)
	req.Header.Set("If-Match", `"0"`)
	rr := httptest.NewRecorder()
	handler.EditMe(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	resp := decodeEnvelope(t, rr)
	if resp.Error == nil || resp.Error.Code != api.CodeSignatureMismatch {
		t.Errorf("error = %+v, want code %s", resp.Error, api.CodeSignatureMismatch)
	}
}

func TestChangePasswordRejectsWeakPassword(t *testing.T) {
	store := inmem.NewStore()
	seedAccount(t, store, "wlodek", ownerLevel())
	handler := newTestHandler(store)

	body := `{"oldPassword":"` + testPassword + `","newPassword":"short"}`
	rr := httptest.NewRecorder()
	handler.ChangePassword(rr, callerRequest(http.MethodPut, "/accounts/me/password", "wlodek", body))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	resp := decodeEnvelope(t, rr)
	if resp.Error == nil || resp.Error.Code != api.CodePasswordPolicy {
		t.Errorf("error = %+v, want code %s", resp.Error, api.CodePasswordPolicy)
	}
}

func grantRequest(targetID uuid.UUID, body string) *http.Request {
	req := callerRequest(http.MethodPost, "/accounts/"+targetID.String()+"/access-levels", "boss", body)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", targetID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestGrantAccessLevelRequiredFields(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		status     int
		wantDetail string
	}{
		{
			name:       "manager without license",
			body:       `{"level":"MANAGER","address":{"postalCode":"90-001","city":"Lodz","street":"Piotrkowska","buildingNumber":1}}`,
			status:     http.StatusBadRequest,
			wantDetail: "licenseNumber",
		},
		{
			name:       "owner without address",
			body:       `{"level":"OWNER"}`,
			status:     http.StatusBadRequest,
			wantDetail: "address",
		},
		{
			name:   "manager with license and address",
			body:   `{"level":"MANAGER","licenseNumber":"LIC-9","address":{"postalCode":"90-001","city":"Lodz","street":"Piotrkowska","buildingNumber":1}}`,
			status: http.StatusNoContent,
		},
		{
			name:   "admin needs neither",
			body:   `{"level":"ADMIN"}`,
			status: http.StatusNoContent,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := inmem.NewStore()
			seedAccount(t, store, "boss", ownerLevel())
			target := seedAccount(t, store, "target")
			handler := newTestHandler(store)

			rr := httptest.NewRecorder()
			handler.GrantAccessLevel(rr, grantRequest(target.ID, tc.body))

			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d, body %s", rr.Code, tc.status, rr.Body.String())
			}
			if tc.wantDetail != "" {
				resp := decodeEnvelope(t, rr)
				if resp.Error == nil || len(resp.Error.Details[tc.wantDetail]) == 0 {
					t.Errorf("error = %+v, want detail for %s", resp.Error, tc.wantDetail)
				}
			}
		})
	}
}
