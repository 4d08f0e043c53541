// Package directory is the user directory: user records, the username and
// email lookup entries, the capped roster and the admin record, all kept in a
// storage.Store.
//
// The store has no multi-key transactions. Mutations are serialized through
// one writer lock, lookup entries are claimed with conditional writes, and
// every multi-key change is bracketed by a pending marker so Repair can find
// and fix what an interrupted change left behind.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/nautilus/internal/models"
	"github.com/iudanet/nautilus/internal/server/storage"
	"github.com/iudanet/nautilus/internal/validation"
)

const (
	// MaxUsers is the hard cap on provisioned accounts
	MaxUsers = 3

	// DefaultAdminPin seeds the admin record when none exists
	DefaultAdminPin = "0327"
)

// Key layout
const (
	keyUserPrefix     = "user:"
	keyUsernamePrefix = "user:username:"
	keyEmailPrefix    = "user:email:"
	keyAdmin          = "admin:master"
	keyUserList       = "admin:userlist"
	keyPendingPrefix  = "pending:"
	keyTasksPrefix    = "tasks:"
	keyProjectsPrefix = "projects:"
)

// Directory owns user records and their lookup entries
type Directory struct {
	store           storage.Store
	logger          *slog.Logger
	now             func() time.Time
	newID           func() string
	adminDefaultPin string
	// mu serializes every mutating operation
	mu sync.Mutex
}

// Option customises a Directory
type Option func(*Directory)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(d *Directory) {
		d.now = now
	}
}

// WithIDGenerator replaces the UUID user id generator
func WithIDGenerator(newID func() string) Option {
	return func(d *Directory) {
		d.newID = newID
	}
}

// WithDefaultAdminPin overrides the PIN used to seed the admin record
func WithDefaultAdminPin(pin string) Option {
	return func(d *Directory) {
		d.adminDefaultPin = pin
	}
}

// New creates a directory over store
func New(store storage.Store, logger *slog.Logger, opts ...Option) *Directory {
	d := &Directory{
		store:           store,
		logger:          logger,
		now:             time.Now,
		newID:           uuid.NewString,
		adminDefaultPin: DefaultAdminPin,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Capacity returns the maximum number of accounts
func (d *Directory) Capacity() int {
	return MaxUsers
}

func userKey(id string) string {
	return keyUserPrefix + id
}

func usernameKey(username string) string {
	return keyUsernamePrefix + username
}

func emailKey(email string) string {
	return keyEmailPrefix + email
}

// isRecordKey отличает user:<id> от lookup-записей с тем же префиксом
func isRecordKey(key string) bool {
	return strings.HasPrefix(key, keyUserPrefix) &&
		!strings.HasPrefix(key, keyUsernamePrefix) &&
		!strings.HasPrefix(key, keyEmailPrefix)
}

// FindByIdentifier resolves a username or an email (anything containing "@")
// to a user id. Returns "" when there is no lookup entry.
func (d *Directory) FindByIdentifier(ctx context.Context, identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", nil
	}

	key := usernameKey(validation.NormalizeUsername(identifier))
	if strings.Contains(identifier, "@") {
		key = emailKey(validation.NormalizeEmail(identifier))
	}

	return d.getLookup(ctx, key)
}

// Get returns the user record with the given id
func (d *Directory) Get(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, newError(ErrNotFound, "user not found")
	}
	return d.getUser(ctx, id)
}

// List returns all users in roster order. Roster ids without a record are skipped.
func (d *Directory) List(ctx context.Context) ([]*models.User, error) {
	roster, err := d.getRoster(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, len(roster))
	for _, id := range roster {
		user, err := d.getUser(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				d.logger.WarnContext(ctx, "roster entry without user record", slog.String("user_id", id))
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}

	return users, nil
}

func (d *Directory) getUser(ctx context.Context, id string) (*models.User, error) {
	data, err := d.store.Get(ctx, userKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user := &models.User{}
	if err := json.Unmarshal(data, user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user %s: %w", id, err)
	}

	return user, nil
}

func (d *Directory) putUser(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	if err := d.store.Put(ctx, userKey(user.ID), data); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

func (d *Directory) userExists(ctx context.Context, id string) (bool, error) {
	_, err := d.getUser(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *Directory) getLookup(ctx context.Context, key string) (string, error) {
	data, err := d.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get lookup entry: %w", err)
	}
	return string(data), nil
}

// liveOwner returns the id a lookup entry points at, ignoring entries whose
// user record no longer exists
func (d *Directory) liveOwner(ctx context.Context, key string) (string, error) {
	owner, err := d.getLookup(ctx, key)
	if err != nil || owner == "" {
		return "", err
	}

	exists, err := d.userExists(ctx, owner)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", nil
	}

	return owner, nil
}

// claimLookup points key at id with a conditional write.
// A dangling entry whose owner record is gone gets overwritten.
func (d *Directory) claimLookup(ctx context.Context, key, id string, conflictMsg string) error {
	ok, err := d.store.PutIfAbsent(ctx, key, []byte(id))
	if err != nil {
		return fmt.Errorf("failed to claim lookup entry: %w", err)
	}
	if ok {
		return nil
	}

	owner, err := d.liveOwner(ctx, key)
	if err != nil {
		return err
	}

	switch owner {
	case id:
		return nil
	case "":
		d.logger.WarnContext(ctx, "overwriting dangling lookup entry", slog.String("key", key))
		if err := d.store.Put(ctx, key, []byte(id)); err != nil {
			return fmt.Errorf("failed to write lookup entry: %w", err)
		}
		return nil
	default:
		return newError(ErrConflict, "%s", conflictMsg)
	}
}

// releaseLookup deletes key only if it still points at id
func (d *Directory) releaseLookup(ctx context.Context, key, id string) error {
	owner, err := d.getLookup(ctx, key)
	if err != nil {
		return err
	}
	if owner != id {
		return nil
	}

	if err := d.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete lookup entry: %w", err)
	}
	return nil
}

func (d *Directory) getRoster(ctx context.Context) ([]string, error) {
	data, err := d.store.Get(ctx, keyUserList)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to get user list: %w", err)
	}

	var roster []string
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user list: %w", err)
	}
	if roster == nil {
		roster = []string{}
	}

	return roster, nil
}

func (d *Directory) putRoster(ctx context.Context, roster []string) error {
	data, err := json.Marshal(roster)
	if err != nil {
		return fmt.Errorf("failed to marshal user list: %w", err)
	}

	if err := d.store.Put(ctx, keyUserList, data); err != nil {
		return fmt.Errorf("failed to save user list: %w", err)
	}

	return nil
}
