package directory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/iudanet/nautilus/internal/crypto"
	"github.com/iudanet/nautilus/internal/models"
	"github.com/iudanet/nautilus/internal/validation"
)

// SetupInput is the first-run profile submitted by a provisioned user
type SetupInput struct {
	Username string
	Name     string
	Email    string
	NewPin   string
}

func validUsername(username string) (string, error) {
	username = validation.NormalizeUsername(username)
	if err := validation.ValidateUsername(username); err != nil {
		return "", newError(ErrValidation, "%s", err.Error())
	}
	return username, nil
}

func validEmail(email string) (string, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return "", newError(ErrValidation, "%s", err.Error())
	}
	return email, nil
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return "", newError(ErrValidation, "%s", err.Error())
	}
	return name, nil
}

// checkAvailable fails with ErrConflict if key is owned by a live user other than id
func (d *Directory) checkAvailable(ctx context.Context, key, id, conflictMsg string) error {
	owner, err := d.liveOwner(ctx, key)
	if err != nil {
		return err
	}
	if owner != "" && owner != id {
		return newError(ErrConflict, "%s", conflictMsg)
	}
	return nil
}

// CompleteSetup stores the first-run profile, replaces the temporary PIN and
// clears NeedsSetup. Username and email availability ignore the caller's own entries.
func (d *Directory) CompleteSetup(ctx context.Context, id string, in SetupInput) (*models.User, error) {
	username, err := validUsername(in.Username)
	if err != nil {
		return nil, err
	}
	name, err := validName(in.Name)
	if err != nil {
		return nil, err
	}
	email, err := validEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if !crypto.IsValidPin(in.NewPin) {
		return nil, newError(ErrValidation, "PIN must be exactly 4 digits")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.NeedsSetup {
		return nil, newError(ErrValidation, "setup already completed")
	}

	if err := d.checkAvailable(ctx, usernameKey(username), id, "username already taken"); err != nil {
		return nil, err
	}
	if err := d.checkAvailable(ctx, emailKey(email), id, "email already in use"); err != nil {
		return nil, err
	}

	pinHash, err := crypto.CreatePinHash(in.NewPin)
	if err != nil {
		return nil, err
	}

	oldUsername, oldEmail := user.Username, user.Email
	keys := []string{usernameKey(oldUsername), usernameKey(username), emailKey(email)}
	if oldEmail != "" {
		keys = append(keys, emailKey(oldEmail))
	}

	opID, err := d.beginOp(ctx, "setup", id, keys...)
	if err != nil {
		return nil, err
	}

	// Сначала занимаем новые lookup-записи, затем пишем запись, затем освобождаем старые
	var claimed []string
	for _, c := range []struct{ key, msg string }{
		{usernameKey(username), "username already taken"},
		{emailKey(email), "email already in use"},
	} {
		if err := d.claimLookup(ctx, c.key, id, c.msg); err != nil {
			d.rollbackClaims(ctx, id, claimed)
			d.endOp(ctx, opID)
			return nil, err
		}
		claimed = append(claimed, c.key)
	}

	now := d.now().UTC()
	user.Username = username
	user.Name = name
	user.Email = email
	user.PinHash = pinHash
	user.NeedsSetup = false
	user.SetupCompletedAt = &now

	if err := d.putUser(ctx, user); err != nil {
		return nil, err
	}

	if oldUsername != username {
		if err := d.releaseLookup(ctx, usernameKey(oldUsername), id); err != nil {
			return nil, err
		}
	}
	if oldEmail != "" && oldEmail != email {
		if err := d.releaseLookup(ctx, emailKey(oldEmail), id); err != nil {
			return nil, err
		}
	}

	d.endOp(ctx, opID)

	d.logger.InfoContext(ctx, "user setup completed",
		slog.String("user_id", id),
		slog.String("username", username))

	return user, nil
}

// rollbackClaims releases lookup entries claimed by a change that then failed.
// Entries that already belonged to id before the change are left alone.
func (d *Directory) rollbackClaims(ctx context.Context, id string, keys []string) {
	user, err := d.Get(ctx, id)
	if err != nil {
		return
	}
	for _, key := range keys {
		if key == usernameKey(user.Username) || (user.Email != "" && key == emailKey(user.Email)) {
			continue
		}
		if err := d.releaseLookup(ctx, key, id); err != nil {
			d.logger.WarnContext(ctx, "failed to roll back lookup entry",
				slog.String("key", key),
				slog.Any("error", err))
		}
	}
}

// RenameUsername moves the user to a new username
func (d *Directory) RenameUsername(ctx context.Context, id, newUsername string) (*models.User, error) {
	username, err := validUsername(newUsername)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Username == username {
		return user, nil
	}

	if err := d.checkAvailable(ctx, usernameKey(username), id, "username already taken"); err != nil {
		return nil, err
	}

	if err := d.moveLookup(ctx, "rename", user, usernameKey(user.Username), usernameKey(username), "username already taken", func(u *models.User) {
		u.Username = username
	}); err != nil {
		return nil, err
	}

	d.logger.InfoContext(ctx, "username changed", slog.String("user_id", id), slog.String("username", username))

	return user, nil
}

// ChangeEmail moves the user to a new email address
func (d *Directory) ChangeEmail(ctx context.Context, id, newEmail string) (*models.User, error) {
	email, err := validEmail(newEmail)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Email == email {
		return user, nil
	}

	if err := d.checkAvailable(ctx, emailKey(email), id, "email already in use"); err != nil {
		return nil, err
	}

	oldKey := ""
	if user.Email != "" {
		oldKey = emailKey(user.Email)
	}

	if err := d.moveLookup(ctx, "change-email", user, oldKey, emailKey(email), "email already in use", func(u *models.User) {
		u.Email = email
	}); err != nil {
		return nil, err
	}

	d.logger.InfoContext(ctx, "email changed", slog.String("user_id", id))

	return user, nil
}

// moveLookup claims newKey, applies update to the record, saves it and
// releases oldKey (if any), all under one pending marker
func (d *Directory) moveLookup(ctx context.Context, op string, user *models.User, oldKey, newKey, conflictMsg string, update func(*models.User)) error {
	keys := []string{newKey}
	if oldKey != "" {
		keys = append(keys, oldKey)
	}

	opID, err := d.beginOp(ctx, op, user.ID, keys...)
	if err != nil {
		return err
	}

	if err := d.claimLookup(ctx, newKey, user.ID, conflictMsg); err != nil {
		d.endOp(ctx, opID)
		return err
	}

	update(user)
	if err := d.putUser(ctx, user); err != nil {
		return err
	}

	if oldKey != "" {
		if err := d.releaseLookup(ctx, oldKey, user.ID); err != nil {
			return err
		}
	}

	d.endOp(ctx, opID)
	return nil
}

// ChangeName updates the display name
func (d *Directory) ChangeName(ctx context.Context, id, newName string) (*models.User, error) {
	name, err := validName(newName)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Name = name
	if err := d.putUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// ChangePin replaces the PIN after checking the current one.
// A wrong current PIN fails with ErrAuthentication and writes nothing.
func (d *Directory) ChangePin(ctx context.Context, id, currentPin, newPin string) error {
	if !crypto.IsValidPin(currentPin) || !crypto.IsValidPin(newPin) {
		return newError(ErrValidation, "PIN must be exactly 4 digits")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user, err := d.Get(ctx, id)
	if err != nil {
		return err
	}

	if !crypto.VerifyPin(currentPin, user.PinHash) {
		return newError(ErrAuthentication, "current PIN is incorrect")
	}

	pinHash, err := crypto.CreatePinHash(newPin)
	if err != nil {
		return err
	}

	user.PinHash = pinHash
	if err := d.putUser(ctx, user); err != nil {
		return err
	}

	d.logger.InfoContext(ctx, "pin changed", slog.String("user_id", id))

	return nil
}

// VerifyUserPin checks pin against the user's stored hash
func (d *Directory) VerifyUserPin(user *models.User, pin string) bool {
	return crypto.VerifyPin(pin, user.PinHash)
}
