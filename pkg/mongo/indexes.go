package mongo

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"julianmorley.ca/con-plar/storefront/pkg/global"
)

const ConfirmationsCollection = "order_confirmations"

type IndexConfig struct {
	CollectionName string
	IndexModel     mongo.IndexModel
}

var requiredIndexes = []IndexConfig{
	// one confirmation per backend order
	{
		CollectionName: ConfirmationsCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "order_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_order_id_unique"),
		},
	},
	// order history of a session, newest first
	{
		CollectionName: ConfirmationsCollection,
		IndexModel: mongo.IndexModel{
			Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_session_orders"),
		},
	},
	// order history of a signed in user across sessions
	{
		CollectionName: ConfirmationsCollection,
		IndexModel: mongo.IndexModel{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetSparse(true).SetName("idx_user_orders"),
		},
	},
}

func EnsureIndexes(db *mongo.Database, logger *zap.Logger) error {
	for _, idxConfig := range requiredIndexes {
		if err := ensureIndex(db, idxConfig, logger); err != nil {
			return err
		}
	}
	logger.Info("mongo indexes ready", zap.Int("count", len(requiredIndexes)))
	return nil
}

func ensureIndex(db *mongo.Database, idxConfig IndexConfig, logger *zap.Logger) error {
	ctx, cancel := global.GetDefaultTimer()
	defer cancel()

	indexName, err := db.Collection(idxConfig.CollectionName).Indexes().CreateOne(ctx, idxConfig.IndexModel)
	if err != nil {
		return fmt.Errorf("failed to create index on %s: %w", idxConfig.CollectionName, err)
	}
	logger.Debug("created index", zap.String("index", indexName), zap.String("collection", idxConfig.CollectionName))
	return nil
}

// RequiredIndexes is exposed for the index listing in tests and tooling.
func RequiredIndexes() []IndexConfig {
	return append([]IndexConfig(nil), requiredIndexes...)
}
