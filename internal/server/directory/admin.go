package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/nautilus/internal/crypto"
	"github.com/iudanet/nautilus/internal/models"
	"github.com/iudanet/nautilus/internal/server/storage"
)

// EnsureAdmin returns the admin record, seeding it with the default admin PIN
// on first use. Concurrent seeds resolve through the conditional write.
func (d *Directory) EnsureAdmin(ctx context.Context) (*models.Admin, error) {
	admin, err := d.getAdmin(ctx)
	if err == nil {
		return admin, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	pinHash, err := crypto.CreatePinHash(d.adminDefaultPin)
	if err != nil {
		return nil, err
	}

	now := d.now().UTC()
	admin = &models.Admin{
		PinHash:   pinHash,
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.Marshal(admin)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal admin: %w", err)
	}

	ok, err := d.store.PutIfAbsent(ctx, keyAdmin, data)
	if err != nil {
		return nil, fmt.Errorf("failed to seed admin: %w", err)
	}
	if !ok {
		// кто-то успел раньше
		return d.getAdmin(ctx)
	}

	d.logger.InfoContext(ctx, "admin record seeded")

	return admin, nil
}

// VerifyAdminPin checks pin against the admin record
func (d *Directory) VerifyAdminPin(ctx context.Context, pin string) (bool, error) {
	admin, err := d.EnsureAdmin(ctx)
	if err != nil {
		return false, err
	}
	return crypto.VerifyPin(pin, admin.PinHash), nil
}

// ChangeAdminPin replaces the admin PIN after checking the current one
func (d *Directory) ChangeAdminPin(ctx context.Context, currentPin, newPin string) error {
	if !crypto.IsValidPin(currentPin) || !crypto.IsValidPin(newPin) {
		return newError(ErrValidation, "PIN must be exactly 4 digits")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	admin, err := d.EnsureAdmin(ctx)
	if err != nil {
		return err
	}
	if !crypto.VerifyPin(currentPin, admin.PinHash) {
		return newError(ErrAuthentication, "current PIN is incorrect")
	}

	pinHash, err := crypto.CreatePinHash(newPin)
	if err != nil {
		return err
	}

	admin.PinHash = pinHash
	admin.UpdatedAt = d.now().UTC()

	data, err := json.Marshal(admin)
	if err != nil {
		return fmt.Errorf("failed to marshal admin: %w", err)
	}
	if err := d.store.Put(ctx, keyAdmin, data); err != nil {
		return fmt.Errorf("failed to save admin: %w", err)
	}

	d.logger.InfoContext(ctx, "admin pin changed")

	return nil
}

func (d *Directory) getAdmin(ctx context.Context) (*models.Admin, error) {
	data, err := d.store.Get(ctx, keyAdmin)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	admin := &models.Admin{}
	if err := json.Unmarshal(data, admin); err != nil {
		return nil, fmt.Errorf("failed to unmarshal admin: %w", err)
	}

	return admin, nil
}
