package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/iudanet/nautilus/internal/models"
)

// RepairReport counts what Repair changed
type RepairReport struct {
	PendingCleared  int `json:"pendingCleared"`
	LookupsRemoved  int `json:"lookupsRemoved"`
	LookupsRestored int `json:"lookupsRestored"`
	RosterRemoved   int `json:"rosterRemoved"`
	RosterAdded     int `json:"rosterAdded"`
	RecordsRemoved  int `json:"recordsRemoved"`
	DataRemoved     int `json:"dataRemoved"`
}

// Changed reports whether Repair touched anything besides pending markers
func (r RepairReport) Changed() bool {
	return r.LookupsRemoved+r.LookupsRestored+r.RosterRemoved+r.RosterAdded+r.RecordsRemoved+r.DataRemoved > 0
}

// Repair brings the store back to a consistent state after interrupted
// changes. It is safe to run on a consistent store, where it changes nothing.
//
// Pending markers only tell that something was interrupted; the fix itself is
// a full reconciliation of records, roster and lookup entries, after which the
// markers are dropped.
func (d *Directory) Repair(ctx context.Context) (RepairReport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var report RepairReport

	markers, err := d.store.Keys(ctx, keyPendingPrefix)
	if err != nil {
		return report, fmt.Errorf("failed to list pending markers: %w", err)
	}
	for _, key := range markers {
		d.logInterrupted(ctx, key)
	}

	records, err := d.loadRecords(ctx, &report)
	if err != nil {
		return report, err
	}

	if err := d.repairRoster(ctx, records, &report); err != nil {
		return report, err
	}
	if err := d.repairLookups(ctx, records, &report); err != nil {
		return report, err
	}
	if err := d.restoreLookups(ctx, records, &report); err != nil {
		return report, err
	}
	if err := d.removeOrphanData(ctx, records, &report); err != nil {
		return report, err
	}

	for _, key := range markers {
		if err := d.store.Delete(ctx, key); err != nil {
			return report, fmt.Errorf("failed to delete pending marker: %w", err)
		}
		report.PendingCleared++
	}

	if report.Changed() || report.PendingCleared > 0 {
		d.logger.InfoContext(ctx, "directory repaired", slog.Any("report", report))
	}

	return report, nil
}

func (d *Directory) logInterrupted(ctx context.Context, key string) {
	data, err := d.store.Get(ctx, key)
	if err != nil {
		return
	}

	var op pendingOp
	if err := json.Unmarshal(data, &op); err != nil {
		d.logger.WarnContext(ctx, "unreadable pending marker", slog.String("key", key))
		return
	}

	d.logger.WarnContext(ctx, "found interrupted change",
		slog.String("op", op.Op),
		slog.String("user_id", op.UserID),
		slog.Time("started_at", op.CreatedAt))
}

// loadRecords reads every user:<id> record. Unreadable records are deleted.
func (d *Directory) loadRecords(ctx context.Context, report *RepairReport) (map[string]*models.User, error) {
	keys, err := d.store.Keys(ctx, keyUserPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list user keys: %w", err)
	}

	records := make(map[string]*models.User)
	for _, key := range keys {
		if !isRecordKey(key) {
			continue
		}
		id := strings.TrimPrefix(key, keyUserPrefix)

		user, err := d.getUser(ctx, id)
		if err != nil {
			d.logger.WarnContext(ctx, "removing unreadable user record",
				slog.String("user_id", id),
				slog.Any("error", err))
			if err := d.store.Delete(ctx, key); err != nil {
				return nil, fmt.Errorf("failed to delete user record: %w", err)
			}
			report.RecordsRemoved++
			continue
		}
		records[id] = user
	}

	return records, nil
}

// repairRoster drops duplicate and missing ids and adopts orphaned records.
// Orphans that do not fit under MaxUsers are deleted.
func (d *Directory) repairRoster(ctx context.Context, records map[string]*models.User, report *RepairReport) error {
	roster, err := d.getRoster(ctx)
	if err != nil {
		return err
	}

	fixed := make([]string, 0, len(roster))
	for _, id := range roster {
		if _, ok := records[id]; !ok || slices.Contains(fixed, id) {
			report.RosterRemoved++
			continue
		}
		fixed = append(fixed, id)
	}

	orphans := make([]*models.User, 0)
	for id, user := range records {
		if !slices.Contains(fixed, id) {
			orphans = append(orphans, user)
		}
	}
	// старые записи первыми
	slices.SortFunc(orphans, func(a, b *models.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	for _, user := range orphans {
		if len(fixed) < MaxUsers {
			fixed = append(fixed, user.ID)
			report.RosterAdded++
			continue
		}

		d.logger.WarnContext(ctx, "removing user record over capacity", slog.String("user_id", user.ID))
		if err := d.store.Delete(ctx, userKey(user.ID)); err != nil {
			return fmt.Errorf("failed to delete user record: %w", err)
		}
		delete(records, user.ID)
		report.RecordsRemoved++
	}

	if report.RosterRemoved == 0 && report.RosterAdded == 0 {
		return nil
	}
	return d.putRoster(ctx, fixed)
}

// repairLookups deletes entries that point at a missing record or at a
// record whose username or email no longer matches the entry
func (d *Directory) repairLookups(ctx context.Context, records map[string]*models.User, report *RepairReport) error {
	checks := []struct {
		prefix string
		field  func(*models.User) string
	}{
		{keyUsernamePrefix, func(u *models.User) string { return u.Username }},
		{keyEmailPrefix, func(u *models.User) string { return u.Email }},
	}

	for _, c := range checks {
		keys, err := d.store.Keys(ctx, c.prefix)
		if err != nil {
			return fmt.Errorf("failed to list lookup entries: %w", err)
		}

		for _, key := range keys {
			owner, err := d.getLookup(ctx, key)
			if err != nil {
				return err
			}

			user, ok := records[owner]
			if ok && c.field(user) == strings.TrimPrefix(key, c.prefix) {
				continue
			}

			d.logger.WarnContext(ctx, "removing stale lookup entry",
				slog.String("key", key),
				slog.String("user_id", owner))
			if err := d.store.Delete(ctx, key); err != nil {
				return fmt.Errorf("failed to delete lookup entry: %w", err)
			}
			report.LookupsRemoved++
		}
	}

	return nil
}

// restoreLookups writes entries missing for existing records
func (d *Directory) restoreLookups(ctx context.Context, records map[string]*models.User, report *RepairReport) error {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		user := records[id]

		keys := []string{usernameKey(user.Username)}
		if user.Email != "" {
			keys = append(keys, emailKey(user.Email))
		}

		for _, key := range keys {
			ok, err := d.store.PutIfAbsent(ctx, key, []byte(id))
			if err != nil {
				return fmt.Errorf("failed to restore lookup entry: %w", err)
			}
			if ok {
				report.LookupsRestored++
				continue
			}

			owner, err := d.getLookup(ctx, key)
			if err != nil {
				return err
			}
			if owner != id {
				d.logger.WarnContext(ctx, "lookup entry claimed by another user",
					slog.String("key", key),
					slog.String("user_id", id),
					slog.String("owner_id", owner))
			}
		}
	}

	return nil
}

// removeOrphanData deletes tasks:<id> and projects:<id> left behind by an
// interrupted delete
func (d *Directory) removeOrphanData(ctx context.Context, records map[string]*models.User, report *RepairReport) error {
	for _, prefix := range []string{keyTasksPrefix, keyProjectsPrefix} {
		keys, err := d.store.Keys(ctx, prefix)
		if err != nil {
			return fmt.Errorf("failed to list user data: %w", err)
		}

		for _, key := range keys {
			if _, ok := records[strings.TrimPrefix(key, prefix)]; ok {
				continue
			}
			if err := d.store.Delete(ctx, key); err != nil {
				return fmt.Errorf("failed to delete user data: %w", err)
			}
			report.DataRemoved++
		}
	}

	return nil
}
