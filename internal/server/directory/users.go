package directory

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/iudanet/nautilus/internal/crypto"
	"github.com/iudanet/nautilus/internal/models"
	"github.com/iudanet/nautilus/internal/validation"
)

// CreateUser provisions an account with a temporary PIN.
// It returns the created record and the plaintext temp PIN; this is the only
// place the plaintext PIN is ever handed back. Nothing is written when
// validation, the uniqueness check or the capacity check fails.
func (d *Directory) CreateUser(ctx context.Context, username, name, tempPin string) (*models.User, string, error) {
	username = validation.NormalizeUsername(username)
	name = strings.TrimSpace(name)

	if err := validation.ValidateUsername(username); err != nil {
		return nil, "", newError(ErrValidation, "%s", err.Error())
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, "", newError(ErrValidation, "%s", err.Error())
	}
	if !crypto.IsValidPin(tempPin) {
		return nil, "", newError(ErrValidation, "PIN must be exactly 4 digits")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	roster, err := d.getRoster(ctx)
	if err != nil {
		return nil, "", err
	}
	if len(roster) >= MaxUsers {
		return nil, "", newError(ErrCapacity, "maximum of %d users reached", MaxUsers)
	}

	owner, err := d.liveOwner(ctx, usernameKey(username))
	if err != nil {
		return nil, "", err
	}
	if owner != "" {
		return nil, "", newError(ErrConflict, "username already taken")
	}

	pinHash, err := crypto.CreatePinHash(tempPin)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		ID:         d.newID(),
		Username:   username,
		Name:       name,
		PinHash:    pinHash,
		NeedsSetup: true,
		CreatedAt:  d.now().UTC(),
	}

	opID, err := d.beginOp(ctx, "create", user.ID, usernameKey(username))
	if err != nil {
		return nil, "", err
	}

	if err := d.claimLookup(ctx, usernameKey(username), user.ID, "username already taken"); err != nil {
		d.endOp(ctx, opID)
		return nil, "", err
	}
	if err := d.putUser(ctx, user); err != nil {
		return nil, "", err
	}
	if err := d.putRoster(ctx, append(roster, user.ID)); err != nil {
		return nil, "", err
	}

	d.endOp(ctx, opID)

	d.logger.InfoContext(ctx, "user created",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username))

	return user, tempPin, nil
}

// ResetUser sets a new temporary PIN and sends the user back through setup
func (d *Directory) ResetUser(ctx context.Context, id, newTempPin string) (*models.User, string, error) {
	if !crypto.IsValidPin(newTempPin) {
		return nil, "", newError(ErrValidation, "PIN must be exactly 4 digits")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user, err := d.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	pinHash, err := crypto.CreatePinHash(newTempPin)
	if err != nil {
		return nil, "", err
	}

	user.PinHash = pinHash
	user.NeedsSetup = true

	if err := d.putUser(ctx, user); err != nil {
		return nil, "", err
	}

	d.logger.InfoContext(ctx, "user reset", slog.String("user_id", user.ID))

	return user, newTempPin, nil
}

// DeleteUser removes the record, its lookup entries, the user's task and
// project data and the roster entry
func (d *Directory) DeleteUser(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, err := d.Get(ctx, id)
	if err != nil {
		return err
	}

	keys := []string{usernameKey(user.Username)}
	if user.Email != "" {
		keys = append(keys, emailKey(user.Email))
	}

	opID, err := d.beginOp(ctx, "delete", user.ID, keys...)
	if err != nil {
		return err
	}

	if err := d.store.Delete(ctx, userKey(user.ID)); err != nil {
		return err
	}
	for _, key := range keys {
		if err := d.releaseLookup(ctx, key, user.ID); err != nil {
			return err
		}
	}
	for _, key := range []string{keyTasksPrefix + user.ID, keyProjectsPrefix + user.ID} {
		if err := d.store.Delete(ctx, key); err != nil {
			return err
		}
	}

	roster, err := d.getRoster(ctx)
	if err != nil {
		return err
	}
	roster = slices.DeleteFunc(roster, func(rid string) bool { return rid == user.ID })
	if err := d.putRoster(ctx, roster); err != nil {
		return err
	}

	d.endOp(ctx, opID)

	d.logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username))

	return nil
}
