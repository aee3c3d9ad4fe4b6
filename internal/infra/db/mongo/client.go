package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colRatePlans    = "agg_rate_plan"
	colReservations = "agg_reservation"
	colProperties   = "agg_property"
	colCalendars    = "agg_availability"
)

type Client struct {
	DB *mongo.Database
}

func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the lookup indexes the repositories query by.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colRatePlans: {
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "priority", Value: 1}}},
			{Keys: bson.D{{Key: "base_rate_plan_id", Value: 1}}},
		},
		colReservations: {
			{Keys: bson.D{{Key: "rate_plan_id", Value: 1}}},
		},
		colProperties: {
			{Keys: bson.D{{Key: "host_id", Value: 1}}},
		},
	}
	for col, models := range indexes {
		if _, err := c.DB.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
