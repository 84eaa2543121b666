package account

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Msocha19/SSBD-TUL-2023/internal/api"
	"github.com/Msocha19/SSBD-TUL-2023/internal/auth"
	appctx "github.com/Msocha19/SSBD-TUL-2023/internal/context"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

// Handler exposes the account lifecycle endpoints.
type Handler struct {
	service *Service
	policy  *auth.PasswordPolicy
	log     *slog.Logger
}

// NewHandler creates an account Handler.
func NewHandler(service *Service, policy *auth.PasswordPolicy, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{service: service, policy: policy, log: log}
}

// Register handles POST /accounts/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !api.Decode(w, r, &req) {
		return
	}
	if !h.checkPasswordPolicy(w, req.Password) {
		return
	}
	if req.AccessType == string(repository.AccessManager) && req.LicenseNumber == nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Validation failed",
			map[string][]string{"licenseNumber": {"is required for manager registration"}})
		return
	}

	lang, _ := repository.ParseLanguage(req.Language)
	err := h.service.Register(r.Context(), RegisterParams{
		Login:         req.Login,
		Email:         req.Email,
		Password:      req.Password,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Language:      lang,
		AccessType:    repository.AccessType(req.AccessType),
		Address:       req.Address.toModel(),
		LicenseNumber: req.LicenseNumber,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusCreated, nil)
}

// ConfirmRegistration handles PUT /accounts/confirm-registration.
func (h *Handler) ConfirmRegistration(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !api.Decode(w, r, &req) {
		return
	}
	token, err := uuid.Parse(req.Token)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeTokenInvalid, "Token is not valid", nil)
		return
	}
	if err := h.service.ConfirmRegistration(r.Context(), token); err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusNoContent, nil)
}

// RequestPasswordReset handles POST /accounts/reset-password.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !api.Decode(w, r, &req) {
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusNoContent, nil)
}

// ConfirmPasswordReset handles PUT /accounts/reset-password.
func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req NewPasswordRequest
	if !api.Decode(w, r, &req) {
		return
	}
	if !h.checkPasswordPolicy(w, req.Password) {
		return
	}
	token, err := uuid.Parse(req.Token)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeTokenInvalid, "Token is not valid", nil)
		return
	}
	if err := h.service.ConfirmPasswordReset(r.Context(), token, req.Password); err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusNoContent, nil)
}

// OverrideForcedPassword handles PUT /accounts/override-password.
func (h *Handler) OverrideForcedPassword(w http.ResponseWriter, r *http.Request) {
	var req NewPasswordRequest
	if !api.Decode(w, r, &req) {
		return
	}
	if !h.checkPasswordPolicy(w, req.Password) {
		return
	}
	token, err := uuid.Parse(req.Token)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeTokenInvalid, "Token is not valid", nil)
		return
	}
	if err := h.service.OverrideForcedPassword(r.Context(), token, req.Password); err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusNoContent, nil)
}

// GetMe handles GET /accounts/me.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	login, ok := appctx.CallerLogin(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Invalid or expired token", nil)
		return
	}
	account, err := h.service.GetAccountByLogin(r.Context(), login)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeAccount(w, account)
}

// EditMe handles PUT /accounts/me. The account version travels in If-Match.
func (h *Handler) EditMe(w http.ResponseWriter, r *http.Request) {
	login, ok := appctx.CallerLogin(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Invalid or expired token", nil)
		return
	}
	version, ok := parseIfMatch(w, r)
	if !ok {
		return
	}
	var req EditPersonalDataRequest
	if !api.Decode(w, r, &req) {
		return
	}

	account, err := h.service.EditPersonalData(r.Context(), login, PersonalDataEdit{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Version:      version,
		AccessLevels: toAccessLevelEdits(req.AccessLevels),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeAccount(w, account)
}

// RequestEmailChange handles POST /accounts/me/change-email.
func (h *Handler) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	login, ok := appctx.CallerLogin(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Invalid or expired token", nil)
		return
	}
	if err := h.service.RequestEmailChange(r.Context(), login); err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusNoContent, nil)
}

// ConfirmEmailChange handles PUT /accounts/me/confirm-email.
func (h *Handler) ConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	login, ok := appctx.CallerLogin(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Invalid or expired token", nil)
		return
	}
	var req ConfirmEmailRequest
	if !api.Decode(w, r, &req) {
		return
	}
	token, err := uuid.Parse(req.Token)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeTokenInvalid, "Token is not valid", nil)
		return
	}
	if err := h.service.ConfirmEmailChange(r.Context(), req.Email, token, login); err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusNoContent, nil)
}

// ChangePassword handles PUT /accounts/me/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	login, ok := appctx.CallerLogin(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Invalid or expired token", nil)
		return
	}
	var req ChangePasswordRequest
	if !api.Decode(w, r, &req) {
		return
	}
	if !h.checkPasswordPolicy(w, req.NewPassword) {
		return
	}
	if req.NewPassword == req.OldPassword {
		api.WriteError(w, http.StatusBadRequest, api.CodePasswordPolicy, "New password must differ from the current one", nil)
		return
	}
	if err := h.service.ChangePassword(r.Context(), login, req.OldPassword, req.NewPassword); err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusNoContent, nil)
}

// ChangeLanguage handles PUT /accounts/me/language.
func (h *Handler) ChangeLanguage(w http.ResponseWriter, r *http.Request) {
	login, ok := appctx.CallerLogin(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Invalid or expired token", nil)
		return
	}
	var req ChangeLanguageRequest
	if !api.Decode(w, r, &req) {
		return
	}
	if err := h.service.ChangeAccountLanguage(r.Context(), login, req.Language); err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusNoContent, nil)
}

// ChangeAccessLevel handles POST /accounts/me/access-level/{level}. It only
// confirms that the caller may act under the given level.
func (h *Handler) ChangeAccessLevel(w http.ResponseWriter, r *http.Request) {
	login, ok := appctx.CallerLogin(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Invalid or expired token", nil)
		return
	}
	level, ok := repository.ParseAccessType(chi.URLParam(r, "level"))
	if !ok {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Unknown access level", nil)
		return
	}
	granted, err := h.service.ChangeAccessLevel(r.Context(), login, level)
	if err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusOK, map[string]string{"accessLevel": string(granted)})
}

// ListAccounts handles GET /accounts with optional filters.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	var filter repository.AccountFilter
	if v := r.URL.Query().Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Invalid active filter", nil)
			return
		}
		filter.Active = &active
	}
	if v := r.URL.Query().Get("verified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Invalid verified filter", nil)
			return
		}
		filter.Verified = &verified
	}
	if v := r.URL.Query().Get("accessType"); v != "" {
		t, ok := repository.ParseAccessType(v)
		if !ok {
			api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Unknown access level", nil)
			return
		}
		filter.AccessType = &t
	}

	accounts, err := h.service.ListAccounts(r.Context(), filter)
	if err != nil {
		h.handleError(w, err)
		return
	}
	responses := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		responses = append(responses, ToAccountResponse(a))
	}
	api.WriteSuccess(w, http.StatusOK, responses)
}

// GetAccount handles GET /accounts/{id}.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAccountID(w, r)
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeAccount(w, account)
}

// EditAccount handles PUT /accounts/{id} (admin edit).
func (h *Handler) EditAccount(w http.ResponseWriter, r *http.Request) {
	adminLogin, ok := appctx.CallerLogin(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Invalid or expired token", nil)
		return
	}
	id, ok := parseAccountID(w, r)
	if !ok {
		return
	}
	version, ok := parseIfMatch(w, r)
	if !ok {
		return
	}
	var req AdminEditPersonalDataRequest
	if !api.Decode(w, r, &req) {
		return
	}

	lang, _ := repository.ParseLanguage(req.Language)
	account, err := h.service.EditPersonalDataByAdmin(r.Context(), adminLogin, AdminPersonalDataEdit{
		AccountID:    id,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Language:     lang,
		Version:      version,
		AccessLevels: toAccessLevelEdits(req.AccessLevels),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeAccount(w, account)
}

// ChangeActiveStatus handles PUT /accounts/{id}/active. Admin callers may
// target anyone but themselves; manager callers only plain accounts.
func (h *Handler) ChangeActiveStatus(w http.ResponseWriter, r *http.Request) {
	actorLogin, ok := appctx.CallerLogin(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Invalid or expired token", nil)
		return
	}
	id, ok := parseAccountID(w, r)
	if !ok {
		return
	}
	var req ChangeActiveStatusRequest
	if !api.Decode(w, r, &req) {
		return
	}

	var err error
	if appctx.CallerHasAccess(r.Context(), repository.AccessAdmin) {
		err = h.service.ChangeActiveStatusAsAdmin(r.Context(), actorLogin, id, *req.Active)
	} else {
		err = h.service.ChangeActiveStatusAsManager(r.Context(), actorLogin, id, *req.Active)
	}
	if err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusNoContent, nil)
}

// GrantAccessLevel handles POST /accounts/{id}/access-levels.
func (h *Handler) GrantAccessLevel(w http.ResponseWriter, r *http.Request) {
	actorLogin, ok := appctx.CallerLogin(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Invalid or expired token", nil)
		return
	}
	id, ok := parseAccountID(w, r)
	if !ok {
		return
	}
	var req GrantAccessLevelRequest
	if !api.Decode(w, r, &req) {
		return
	}
	level := repository.AccessType(req.Level)
	if level == repository.AccessManager && req.LicenseNumber == nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Validation failed",
			map[string][]string{"licenseNumber": {"is required for manager grants"}})
		return
	}
	if (level == repository.AccessOwner || level == repository.AccessManager) && req.Address == nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Validation failed",
			map[string][]string{"address": {"is required for owner and manager grants"}})
		return
	}

	grant := GrantParams{
		Level:         level,
		LicenseNumber: req.LicenseNumber,
	}
	if req.Address != nil {
		addr := req.Address.toModel()
		grant.Address = &addr
	}
	if err := h.service.GrantAccessLevel(r.Context(), id, grant, actorLogin); err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusNoContent, nil)
}

// RevokeAccessLevel handles DELETE /accounts/{id}/access-levels/{level}.
func (h *Handler) RevokeAccessLevel(w http.ResponseWriter, r *http.Request) {
	actorLogin, ok := appctx.CallerLogin(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Invalid or expired token", nil)
		return
	}
	id, ok := parseAccountID(w, r)
	if !ok {
		return
	}
	level, ok := repository.ParseAccessType(chi.URLParam(r, "level"))
	if !ok {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Unknown access level", nil)
		return
	}
	if err := h.service.RevokeAccessLevel(r.Context(), id, level, actorLogin); err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusNoContent, nil)
}

// ForcePasswordChange handles PUT /accounts/{login}/force-password-change.
func (h *Handler) ForcePasswordChange(w http.ResponseWriter, r *http.Request) {
	actorLogin, ok := appctx.CallerLogin(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Invalid or expired token", nil)
		return
	}
	targetLogin := chi.URLParam(r, "login")
	if err := h.service.ForcePasswordChange(r.Context(), actorLogin, targetLogin); err != nil {
		h.handleError(w, err)
		return
	}
	api.WriteSuccess(w, http.StatusNoContent, nil)
}

// writeAccount sends the account with its version in the ETag header.
func (h *Handler) writeAccount(w http.ResponseWriter, account *repository.Account) {
	w.Header().Set("ETag", `"`+strconv.FormatInt(account.Version, 10)+`"`)
	api.WriteSuccess(w, http.StatusOK, ToAccountResponse(account))
}

// parseIfMatch extracts the expected account version from If-Match.
func parseIfMatch(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.Trim(r.Header.Get("If-Match"), `"`)
	if raw == "" {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "If-Match header is required", nil)
		return 0, false
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Malformed If-Match header", nil)
		return 0, false
	}
	return version, true
}

func parseAccountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Invalid account ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// checkPasswordPolicy writes a 400 with per-rule details for a weak password.
func (h *Handler) checkPasswordPolicy(w http.ResponseWriter, password string) bool {
	errs := h.policy.Validate(password)
	if len(errs) == 0 {
		return true
	}
	details := map[string][]string{}
	for _, e := range errs {
		details[e.Field] = append(details[e.Field], e.Message)
	}
	api.WriteError(w, http.StatusBadRequest, api.CodePasswordPolicy, "Password does not meet the policy", details)
	return false
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound), errors.Is(err, repository.ErrTokenNotFound):
		api.WriteError(w, http.StatusNotFound, api.CodeNotFound, "Resource not found", nil)
	case errors.Is(err, repository.ErrDuplicateLogin):
		api.WriteError(w, http.StatusConflict, api.CodeLoginExists, "Login is already taken", nil)
	case errors.Is(err, repository.ErrDuplicateEmail):
		api.WriteError(w, http.StatusConflict, api.CodeEmailExists, "Email is already taken", nil)
	case errors.Is(err, repository.ErrDuplicateLicense):
		api.WriteError(w, http.StatusConflict, api.CodeLicenseExists, "License number is already taken", nil)
	case errors.Is(err, repository.ErrOptimisticLock):
		api.WriteError(w, http.StatusConflict, api.CodeOptimisticLock, "The account was modified concurrently", nil)
	case errors.Is(err, ErrSignatureMismatch):
		api.WriteError(w, http.StatusBadRequest, api.CodeSignatureMismatch, "Payload does not match the account's current state", nil)
	case errors.Is(err, ErrInvalidToken):
		api.WriteError(w, http.StatusBadRequest, api.CodeTokenInvalid, "Token is not valid", nil)
	case errors.Is(err, auth.ErrAuthentication):
		api.WriteError(w, http.StatusUnauthorized, api.CodeAuthenticationFailed, "Invalid credentials", nil)
	case errors.Is(err, ErrInvalidPassword):
		api.WriteError(w, http.StatusBadRequest, api.CodeInvalidPassword, "Current password is incorrect", nil)
	case errors.Is(err, ErrAccountUnverified):
		api.WriteError(w, http.StatusForbidden, api.CodeAccountUnverified, "Account is not verified", nil)
	case errors.Is(err, ErrAccountInactive):
		api.WriteError(w, http.StatusForbidden, api.CodeAccountInactive, "Account is not active", nil)
	case errors.Is(err, ErrIllegalSelfAction), errors.Is(err, ErrSelfAccessManagement):
		api.WriteError(w, http.StatusForbidden, api.CodeAccessDenied, "Operation cannot target your own account", nil)
	case errors.Is(err, ErrBadAccessLevel), errors.Is(err, ErrNoAccessLevel):
		api.WriteError(w, http.StatusForbidden, api.CodeAccessDenied, "Access denied", nil)
	case errors.Is(err, ErrLanguageNotFound):
		api.WriteError(w, http.StatusBadRequest, api.CodeValidationError, "Unsupported language", nil)
	default:
		h.log.Error("account request failed", "error", err)
		api.WriteError(w, http.StatusInternalServerError, api.CodeInternalError, "An unexpected error occurred", nil)
	}
}
