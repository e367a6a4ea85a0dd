package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

type PaymentMethodSummary struct {
	PaymentMethod models.PaymentMethod `json:"payment_method" bson:"_id"`
	Orders        int                  `json:"orders" bson:"orders"`
	Total         float64              `json:"total" bson:"total"`
	DueAtCheckout float64              `json:"due_at_checkout" bson:"due_at_checkout"`
	Financed      float64              `json:"financed" bson:"financed"`
	AvgOrderValue float64              `json:"avg_order_value" bson:"avg_order_value"`
}

type OrdersSummary struct {
	Methods     []PaymentMethodSummary `json:"payment_methods"`
	TotalOrders int                    `json:"total_orders"`
	TotalSpent  float64                `json:"total_spent"`
}

func paymentBreakdownPipeline(owner Owner) bson.A {
	return bson.A{
		bson.D{{Key: "$match", Value: owner.Filter()}},
		bson.D{
			{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$payment_method"},
				{Key: "orders", Value: bson.D{{Key: "$sum", Value: 1}}},
				{Key: "total", Value: bson.D{{Key: "$sum", Value: "$total"}}},
				{Key: "due_at_checkout", Value: bson.D{{Key: "$sum", Value: "$amount_due_now"}}},
				{Key: "avg_order_value", Value: bson.D{{Key: "$avg", Value: "$total"}}},
			}},
		},
		bson.D{
			{Key: "$project", Value: bson.D{
				{Key: "orders", Value: 1},
				{Key: "total", Value: bson.D{{Key: "$round", Value: bson.A{"$total", 2}}}},
				{Key: "due_at_checkout", Value: bson.D{{Key: "$round", Value: bson.A{"$due_at_checkout", 2}}}},
				{Key: "financed", Value: bson.D{{Key: "$round", Value: bson.A{
					bson.D{{Key: "$subtract", Value: bson.A{"$total", "$due_at_checkout"}}}, 2,
				}}}},
				{Key: "avg_order_value", Value: bson.D{{Key: "$round", Value: bson.A{"$avg_order_value", 2}}}},
			}},
		},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "total", Value: -1}}}},
	}
}

// PaymentMethodBreakdown groups the owner's archived orders by payment method.
func (a *OrderArchive) PaymentMethodBreakdown(ctx context.Context, owner Owner) (*OrdersSummary, error) {
	cursor, err := a.collection.Aggregate(ctx, paymentBreakdownPipeline(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate orders: %w", err)
	}
	defer cursor.Close(ctx)

	methods := []PaymentMethodSummary{}
	if err := cursor.All(ctx, &methods); err != nil {
		return nil, err
	}
	return summarize(methods), nil
}

func summarize(methods []PaymentMethodSummary) *OrdersSummary {
	result := &OrdersSummary{Methods: methods}
	for _, m := range methods {
		result.TotalOrders += m.Orders
		result.TotalSpent += m.Total
	}
	return result
}
