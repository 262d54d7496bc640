package firestore

import (
	"context"
	"errors"

	"google.golang.org/api/iterator"

	pfirestore "github.com/attaleem/api/internal/platform/firestore"
)

// HealthProbe reports whether Firestore answers a minimal read.
func HealthProbe(provider *pfirestore.Provider) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if provider == nil {
			return errors.New("firestore provider not configured")
		}
		client, err := provider.Client(ctx)
		if err != nil {
			return err
		}
		iter := client.Collections(ctx)
		if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
			return err
		}
		return nil
	}
}
