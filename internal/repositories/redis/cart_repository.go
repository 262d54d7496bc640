package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/attaleem/api/internal/domain"
)

const (
	cartKeyPrefix  = "cart:"
	defaultCartTTL = 7 * 24 * time.Hour
)

type cartLineDocument struct {
	BookID    string    `json:"bookId"`
	Title     string    `json:"title"`
	UnitPrice int64     `json:"unitPrice"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
}

type checkoutStateDocument struct {
	Stage         string                  `json:"stage"`
	Delivery      deliveryDetailsDocument `json:"delivery"`
	PaymentMethod string                  `json:"paymentMethod,omitempty"`
	OrderID       string                  `json:"orderId,omitempty"`
	SessionID     string                  `json:"sessionId,omitempty"`
	TransactionID string                  `json:"transactionId,omitempty"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

type deliveryDetailsDocument struct {
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type cartDocument struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	Lines     []cartLineDocument     `json:"lines"`
	Checkout  *checkoutStateDocument `json:"checkout,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// CartRepository keeps session carts in Redis under one key per user. Carts
// expire on their own after the TTL; every save refreshes it.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository constructs a Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) (*CartRepository, error) {
	if client == nil {
		return nil, errors.New("cart repository: redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultCartTTL
	}
	return &CartRepository{client: client, ttl: ttl}, nil
}

// Get loads the cart for the user. Missing carts surface as not-found.
func (r *CartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	if r == nil || r.client == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	key, err := cartKey(userID)
	if err != nil {
		return domain.Cart{}, err
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Cart{}, WrapError("carts.get", err)
	}
	return decodeCart(raw)
}

// Save persists the cart, replacing any existing value and refreshing the
// TTL. When expectedUpdatedAt is set the write is guarded by a WATCH on the
// key: a concurrent change between load and save surfaces as a conflict.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart, expectedUpdatedAt *time.Time) (domain.Cart, error) {
	if r == nil || r.client == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	key, err := cartKey(cart.UserID)
	if err != nil {
		return domain.Cart{}, err
	}

	payload, err := json.Marshal(encodeCart(cart))
	if err != nil {
		return domain.Cart{}, WrapError("carts.save", err)
	}

	if expectedUpdatedAt == nil {
		if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
			return domain.Cart{}, WrapError("carts.save", err)
		}
		return cart, nil
	}

	txErr := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			// Cart vanished (expired or cleared) since the caller loaded it.
			return conflictError("carts.save")
		case err != nil:
			return err
		}

		stored, err := decodeCart(raw)
		if err != nil {
			return err
		}
		if !stored.UpdatedAt.Equal(expectedUpdatedAt.UTC()) {
			return conflictError("carts.save")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		return err
	}, key)
	if txErr != nil {
		return domain.Cart{}, WrapError("carts.save", txErr)
	}
	return cart, nil
}

// Delete removes the cart. Deleting an absent cart is not an error.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if r == nil || r.client == nil {
		return errors.New("cart repository not initialised")
	}
	key, err := cartKey(userID)
	if err != nil {
		return err
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return WrapError("carts.delete", err)
	}
	return nil
}

// HealthProbe reports whether Redis answers a ping.
func (r *CartRepository) HealthProbe(ctx context.Context) error {
	if r == nil || r.client == nil {
		return errors.New("cart repository not initialised")
	}
	return r.client.Ping(ctx).Err()
}

func cartKey(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("cart repository: user id is required")
	}
	return cartKeyPrefix + userID, nil
}

func encodeCart(cart domain.Cart) cartDocument {
	lines := make([]cartLineDocument, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, cartLineDocument{
			BookID:    line.BookID,
			Title:     line.Title,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			AddedAt:   line.AddedAt.UTC(),
		})
	}
	doc := cartDocument{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Lines:     lines,
		CreatedAt: cart.CreatedAt.UTC(),
		UpdatedAt: cart.UpdatedAt.UTC(),
	}
	if cart.Checkout != nil {
		doc.Checkout = &checkoutStateDocument{
			Stage: string(cart.Checkout.Stage),
			Delivery: deliveryDetailsDocument{
				Address: cart.Checkout.Delivery.Address,
				Phone:   cart.Checkout.Delivery.Phone,
			},
			PaymentMethod: cart.Checkout.PaymentMethod,
			OrderID:       cart.Checkout.OrderID,
			SessionID:     cart.Checkout.SessionID,
			TransactionID: cart.Checkout.TransactionID,
			UpdatedAt:     cart.Checkout.UpdatedAt.UTC(),
		}
	}
	return doc
}

func decodeCart(raw []byte) (domain.Cart, error) {
	var doc cartDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Cart{}, WrapError("carts.decode", err)
	}

	lines := make([]domain.CartLine, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		lines = append(lines, domain.CartLine{
			BookID:    line.BookID,
			Title:     line.Title,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			AddedAt:   line.AddedAt.UTC(),
		})
	}
	cart := domain.Cart{
		ID:        doc.ID,
		UserID:    doc.UserID,
		Lines:     lines,
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}
	if doc.Checkout != nil {
		cart.Checkout = &domain.CheckoutState{
			Stage: domain.CheckoutStage(doc.Checkout.Stage),
			Delivery: domain.DeliveryDetails{
				Address: doc.Checkout.Delivery.Address,
				Phone:   doc.Checkout.Delivery.Phone,
			},
			PaymentMethod: doc.Checkout.PaymentMethod,
			OrderID:       doc.Checkout.OrderID,
			SessionID:     doc.Checkout.SessionID,
			TransactionID: doc.Checkout.TransactionID,
			UpdatedAt:     doc.Checkout.UpdatedAt.UTC(),
		}
	}
	return cart, nil
}
