package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

// AddressDTO mirrors the address value object on the wire.
type AddressDTO struct {
	PostalCode     string `json:"postalCode" validate:"required,len=6"`
	City           string `json:"city" validate:"required,min=1,max=85"`
	Street         string `json:"street" validate:"required,min=1,max=85"`
	BuildingNumber int    `json:"buildingNumber" validate:"required,gt=0"`
}

func (d AddressDTO) toModel() repository.Address {
	return repository.Address{
		PostalCode:     d.PostalCode,
		City:           d.City,
		Street:         d.Street,
		BuildingNumber: d.BuildingNumber,
	}
}

// RegisterRequest is a self-service owner or manager registration.
type RegisterRequest struct {
	Login         string     `json:"login" validate:"required,min=3,max=100"`
	Email         string     `json:"email" validate:"required,email,min=3,max=320"`
	Password      string     `json:"password" validate:"required"`
	FirstName     string     `json:"firstName" validate:"required,max=100"`
	LastName      string     `json:"lastName" validate:"required,max=100"`
	Language      string     `json:"language" validate:"required,oneof=PL EN"`
	AccessType    string     `json:"accessType" validate:"required,oneof=OWNER MANAGER"`
	Address       AddressDTO `json:"address" validate:"required"`
	LicenseNumber *string    `json:"licenseNumber" validate:"omitempty,min=1,max=20"`
}

// TokenRequest carries a bare action token.
type TokenRequest struct {
	Token string `json:"token" validate:"required,uuid"`
}

// ResetPasswordRequest starts the self-service reset flow.
type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// NewPasswordRequest finishes a reset or override flow.
type NewPasswordRequest struct {
	Token    string `json:"token" validate:"required,uuid"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest replaces the caller's own password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// ConfirmEmailRequest finishes the email-change flow with the new address.
type ConfirmEmailRequest struct {
	Email string `json:"email" validate:"required,email,min=3,max=320"`
	Token string `json:"token" validate:"required,uuid"`
}

// ChangeLanguageRequest sets the preferred notification language.
type ChangeLanguageRequest struct {
	Language string `json:"language" validate:"required"`
}

// ChangeActiveStatusRequest blocks or unblocks an account.
type ChangeActiveStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// GrantAccessLevelRequest attaches an access level to an account. Address is
// required for owner and manager grants, license number for manager grants;
// both are ignored on an idempotent re-grant.
type GrantAccessLevelRequest struct {
	Level         string      `json:"level" validate:"required,oneof=OWNER MANAGER ADMIN"`
	Address       *AddressDTO `json:"address" validate:"omitempty"`
	LicenseNumber *string     `json:"licenseNumber" validate:"omitempty,min=1,max=20"`
}

// AccessLevelEditDTO is one access level inside a profile edit.
type AccessLevelEditDTO struct {
	Level         string      `json:"level" validate:"required,oneof=OWNER MANAGER ADMIN"`
	Version       int64       `json:"version"`
	Address       *AddressDTO `json:"address" validate:"omitempty"`
	LicenseNumber *string     `json:"licenseNumber" validate:"omitempty,min=1,max=20"`
}

// EditPersonalDataRequest is a self-service profile edit. The account version
// travels in the If-Match header, the per-level versions in the payload.
type EditPersonalDataRequest struct {
	FirstName    string               `json:"firstName" validate:"required,max=100"`
	LastName     string               `json:"lastName" validate:"required,max=100"`
	AccessLevels []AccessLevelEditDTO `json:"accessLevels" validate:"dive"`
}

// AdminEditPersonalDataRequest is an administrative profile edit.
type AdminEditPersonalDataRequest struct {
	Email        string               `json:"email" validate:"required,email,min=3,max=320"`
	FirstName    string               `json:"firstName" validate:"required,max=100"`
	LastName     string               `json:"lastName" validate:"required,max=100"`
	Language     string               `json:"language" validate:"required,oneof=PL EN"`
	AccessLevels []AccessLevelEditDTO `json:"accessLevels" validate:"dive"`
}

func toAccessLevelEdits(dtos []AccessLevelEditDTO) []AccessLevelEdit {
	edits := make([]AccessLevelEdit, 0, len(dtos))
	for _, d := range dtos {
		e := AccessLevelEdit{
			Level:         repository.AccessType(d.Level),
			Version:       d.Version,
			LicenseNumber: d.LicenseNumber,
		}
		if d.Address != nil {
			addr := d.Address.toModel()
			e.Address = &addr
		}
		edits = append(edits, e)
	}
	return edits
}

// AccessLevelResponse is one access level in an account response.
type AccessLevelResponse struct {
	Level         string      `json:"level"`
	Active        bool        `json:"active"`
	Verified      bool        `json:"verified"`
	Version       int64       `json:"version"`
	Address       *AddressDTO `json:"address,omitempty"`
	LicenseNumber *string     `json:"licenseNumber,omitempty"`
}

// ActivityResponse is the login activity on an account response.
type ActivityResponse struct {
	LastSuccessfulLogin     *time.Time `json:"lastSuccessfulLogin,omitempty"`
	LastSuccessfulLoginIP   *string    `json:"lastSuccessfulLoginIp,omitempty"`
	LastUnsuccessfulLogin   *time.Time `json:"lastUnsuccessfulLogin,omitempty"`
	LastUnsuccessfulLoginIP *string    `json:"lastUnsuccessfulLoginIp,omitempty"`
	FailedLoginCount        int        `json:"failedLoginCount"`
}

// AccountResponse is the account aggregate on the wire.
type AccountResponse struct {
	ID           uuid.UUID             `json:"id"`
	Login        string                `json:"login"`
	Email        string                `json:"email"`
	FirstName    string                `json:"firstName"`
	LastName     string                `json:"lastName"`
	Verified     bool                  `json:"verified"`
	Active       bool                  `json:"active"`
	Language     string                `json:"language"`
	Version      int64                 `json:"version"`
	AccessLevels []AccessLevelResponse `json:"accessLevels"`
	Activity     ActivityResponse      `json:"activity"`
	CreatedAt    time.Time             `json:"createdAt"`
}

// ToAccountResponse converts the aggregate to its wire form.
func ToAccountResponse(a *repository.Account) AccountResponse {
	levels := make([]AccessLevelResponse, 0, len(a.AccessLevels))
	for _, al := range a.AccessLevels {
		lr := AccessLevelResponse{
			Level:         string(al.Level),
			Active:        al.Active,
			Verified:      al.Verified,
			Version:       al.Version,
			LicenseNumber: al.LicenseNumber,
		}
		if al.Address != nil {
			lr.Address = &AddressDTO{
				PostalCode:     al.Address.PostalCode,
				City:           al.Address.City,
				Street:         al.Address.Street,
				BuildingNumber: al.Address.BuildingNumber,
			}
		}
		levels = append(levels, lr)
	}

	return AccountResponse{
		ID:           a.ID,
		Login:        a.Login,
		Email:        a.Email,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Verified:     a.Verified,
		Active:       a.Active,
		Language:     string(a.Language),
		Version:      a.Version,
		AccessLevels: levels,
		Activity: ActivityResponse{
			LastSuccessfulLogin:     a.Activity.LastSuccessfulLogin,
			LastSuccessfulLoginIP:   a.Activity.LastSuccessfulLoginIP,
			LastUnsuccessfulLogin:   a.Activity.LastUnsuccessfulLogin,
			LastUnsuccessfulLoginIP: a.Activity.LastUnsuccessfulLoginIP,
			FailedLoginCount:        a.Activity.UnsuccessfulLoginCounter,
		},
		CreatedAt: a.CreatedAt,
	}
}
