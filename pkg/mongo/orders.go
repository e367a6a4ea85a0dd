package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

var ErrConfirmationNotFound = errors.New("order confirmation not found")

const defaultListLimit = 20

// OrderArchive stores order confirmations. It adds nothing to the backend's order
// record; it only lets the confirmation screen and order list render from the BFF.
type OrderArchive struct {
	collection *mongo.Collection
}

func NewOrderArchive(db *mongo.Database) *OrderArchive {
	return &OrderArchive{collection: db.Collection(ConfirmationsCollection)}
}

// SaveConfirmation upserts by order id so a retried placement does not duplicate.
func (a *OrderArchive) SaveConfirmation(ctx context.Context, c *models.OrderConfirmation) error {
	c.SetTimestamps()
	_, err := a.collection.ReplaceOne(ctx,
		bson.D{{Key: "order_id", Value: c.OrderID}},
		c,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save confirmation %s: %w", c.OrderID, err)
	}
	return nil
}

// GetConfirmation returns the confirmation of orderID when it belongs to the owner.
func (a *OrderArchive) GetConfirmation(ctx context.Context, orderID string, owner Owner) (*models.OrderConfirmation, error) {
	filter := bson.D{
		{Key: "order_id", Value: orderID},
		{Key: "$or", Value: owner.clauses()},
	}
	var c models.OrderConfirmation
	err := a.collection.FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrConfirmationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load confirmation %s: %w", orderID, err)
	}
	return &c, nil
}

// ListConfirmations returns the owner's confirmations, newest first.
func (a *OrderArchive) ListConfirmations(ctx context.Context, owner Owner, limit int) ([]models.OrderConfirmation, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := a.collection.Find(ctx, owner.Filter(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmations: %w", err)
	}
	defer cursor.Close(ctx)

	items := []models.OrderConfirmation{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode confirmations: %w", err)
	}
	return items, nil
}

// Owner scopes archive reads: always the guest session, plus the user id for
// signed in sessions so history follows the account across devices.
type Owner struct {
	SessionID string
	UserID    string
}

func OwnerOf(sess models.Session) Owner {
	o := Owner{SessionID: sess.ID}
	if sess.Authenticated {
		o.UserID = sess.UserID
	}
	return o
}

func (o Owner) clauses() bson.A {
	clauses := bson.A{bson.D{{Key: "session_id", Value: o.SessionID}}}
	if o.UserID != "" {
		clauses = append(clauses, bson.D{{Key: "user_id", Value: o.UserID}})
	}
	return clauses
}

func (o Owner) Filter() bson.D {
	return bson.D{{Key: "$or", Value: o.clauses()}}
}
