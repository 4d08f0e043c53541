package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// pendingOp marks a multi-key change that has started but not finished
type pendingOp struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	UserID    string    `json:"userId"`
	Keys      []string  `json:"keys"`
}

// beginOp writes the pending marker before the first key of a change is touched
func (d *Directory) beginOp(ctx context.Context, op, userID string, keys ...string) (string, error) {
	marker := pendingOp{
		ID:        uuid.NewString(),
		Op:        op,
		UserID:    userID,
		Keys:      keys,
		CreatedAt: d.now().UTC(),
	}

	data, err := json.Marshal(marker)
	if err != nil {
		return "", fmt.Errorf("failed to marshal pending marker: %w", err)
	}

	if err := d.store.Put(ctx, keyPendingPrefix+marker.ID, data); err != nil {
		return "", fmt.Errorf("failed to write pending marker: %w", err)
	}

	return marker.ID, nil
}

// endOp clears the marker. The change itself already happened, so a failure
// here is only logged; Repair will clear the marker later.
func (d *Directory) endOp(ctx context.Context, opID string) {
	if err := d.store.Delete(ctx, keyPendingPrefix+opID); err != nil {
		d.logger.WarnContext(ctx, "failed to clear pending marker",
			slog.String("op_id", opID),
			slog.Any("error", err))
	}
}
