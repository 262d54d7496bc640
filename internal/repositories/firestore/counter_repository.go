package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/attaleem/api/internal/platform/firestore"
)

const countersCollection = "counters"

type counterDocument struct {
	CurrentValue int64     `firestore:"currentValue"`
	Step         int64     `firestore:"step"`
	MaxValue     int64     `firestore:"maxValue"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// CounterRepository hands out monotonically increasing sequence numbers. A
// missing counter document starts at zero on first use.
type CounterRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[counterDocument]
	clock    func() time.Time
}

// NewCounterRepository constructs a Firestore-backed counter repository.
func NewCounterRepository(provider *pfirestore.Provider, clock func() time.Time) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository: firestore provider is required")
	}
	if clock == nil {
		clock = time.Now
	}
	base := pfirestore.NewBaseRepository[counterDocument](provider, countersCollection, nil, nil)
	return &CounterRepository{
		provider: provider,
		base:     base,
		clock:    func() time.Time { return clock().UTC() },
	}, nil
}

// Next reserves and returns the next value of the named counter.
func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if r == nil || r.base == nil {
		return 0, errors.New("counter repository not initialised")
	}
	counterID = strings.TrimSpace(counterID)
	if counterID == "" {
		return 0, errors.New("counter repository: counter id is required")
	}
	if step <= 0 {
		step = 1
	}

	docRef, err := r.base.DocumentRef(ctx, counterID)
	if err != nil {
		return 0, err
	}

	var next int64
	txErr := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var doc counterDocument
		snap, err := tx.Get(docRef)
		switch {
		case err == nil:
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
		case status.Code(err) == codes.NotFound:
			doc = counterDocument{}
		default:
			return err
		}

		increment := doc.Step
		if increment <= 0 {
			increment = step
		}
		next = doc.CurrentValue + increment
		if doc.MaxValue > 0 && next > doc.MaxValue {
			return fmt.Errorf("counter %s exhausted at %d", counterID, doc.MaxValue)
		}

		doc.CurrentValue = next
		doc.UpdatedAt = r.clock()
		return tx.Set(docRef, doc)
	})
	if txErr != nil {
		return 0, txErr
	}
	return next, nil
}
