package account

import (
	"context"

	"github.com/google/uuid"

	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

// AccessLevelEdit is the client's view of one access level inside a profile
// edit: its type, the version it was read at, and the editable variant data.
type AccessLevelEdit struct {
	Level         repository.AccessType
	Version       int64
	Address       *repository.Address
	LicenseNumber *string
}

// PersonalDataEdit is a self-service profile edit.
type PersonalDataEdit struct {
	FirstName    string
	LastName     string
	Version      int64
	AccessLevels []AccessLevelEdit
}

// AdminPersonalDataEdit is an administrative edit of another account. Admins
// may additionally change email and language.
type AdminPersonalDataEdit struct {
	AccountID    uuid.UUID
	Email        string
	FirstName    string
	LastName     string
	Language     repository.Language
	Version      int64
	AccessLevels []AccessLevelEdit
}

// EditPersonalData applies a self-edit. A stale account version is an
// optimistic-lock conflict; an inconsistent access-level set or tampered
// per-level version is a signature failure detected before anything is
// written.
func (s *Service) EditPersonalData(ctx context.Context, login string, edit PersonalDataEdit) (*repository.Account, error) {
	var account *repository.Account
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		account, err = tx.Accounts().GetByLogin(ctx, login)
		if err != nil {
			return err
		}
		if account.Version != edit.Version {
			return repository.ErrOptimisticLock
		}

		changed, err := checkAndApplyAccessLevels(account, edit.AccessLevels)
		if err != nil {
			return err
		}

		account.FirstName = edit.FirstName
		account.LastName = edit.LastName
		if err := tx.Accounts().Update(ctx, account); err != nil {
			return err
		}
		for _, al := range changed {
			if err := tx.Accounts().UpdateAccessLevel(ctx, al); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// EditPersonalDataByAdmin applies an administrative edit to another account
// under the same signature and optimistic-lock regime as a self-edit.
func (s *Service) EditPersonalDataByAdmin(ctx context.Context, adminLogin string, edit AdminPersonalDataEdit) (*repository.Account, error) {
	var account *repository.Account
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		admin, err := tx.Accounts().GetByLogin(ctx, adminLogin)
		if err != nil {
			return err
		}
		if admin.AccessLevelOf(repository.AccessAdmin) == nil {
			return ErrBadAccessLevel
		}

		account, err = tx.Accounts().GetByID(ctx, edit.AccountID)
		if err != nil {
			return err
		}
		if account.Version != edit.Version {
			return repository.ErrOptimisticLock
		}

		changed, err := checkAndApplyAccessLevels(account, edit.AccessLevels)
		if err != nil {
			return err
		}

		account.Email = edit.Email
		account.FirstName = edit.FirstName
		account.LastName = edit.LastName
		account.Language = edit.Language
		if err := tx.Accounts().Update(ctx, account); err != nil {
			return err
		}
		for _, al := range changed {
			if err := tx.Accounts().UpdateAccessLevel(ctx, al); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// checkAndApplyAccessLevels verifies the payload's access-level set against
// the server's and applies the editable fields in memory. Rules:
//   - every payload level must exist on the account, with a matching version;
//   - every active server level must appear in the payload;
//   - inactive server levels may be omitted and are left untouched;
//   - admin levels carry no editable variant data and pass through unchanged.
//
// It returns the levels whose variant data was applied, for persisting.
func checkAndApplyAccessLevels(account *repository.Account, edits []AccessLevelEdit) ([]*repository.AccessLevel, error) {
	byLevel := make(map[repository.AccessType]AccessLevelEdit, len(edits))
	for _, e := range edits {
		if account.AccessLevelOf(e.Level) == nil {
			return nil, ErrSignatureMismatch
		}
		byLevel[e.Level] = e
	}

	var changed []*repository.AccessLevel
	for _, al := range account.AccessLevels {
		if !al.Active {
			continue
		}
		edit, ok := byLevel[al.Level]
		if !ok {
			return nil, ErrSignatureMismatch
		}
		if edit.Version != al.Version {
			return nil, ErrSignatureMismatch
		}

		// A nil field keeps the stored value; managers never lose their
		// license and owners never lose their address through an edit.
		switch al.Level {
		case repository.AccessOwner:
			if edit.Address != nil {
				al.Address = edit.Address
			}
			changed = append(changed, al)
		case repository.AccessManager:
			if edit.Address != nil {
				al.Address = edit.Address
			}
			if edit.LicenseNumber != nil {
				al.LicenseNumber = edit.LicenseNumber
			}
			changed = append(changed, al)
		default:
		}
	}
	return changed, nil
}
