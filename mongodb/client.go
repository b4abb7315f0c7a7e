package mongodb

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
)

// Handle bundles a connected client and the selected database. Callers hold
// one explicitly and pass the database to the repositories; there is no
// package-level instance.
type Handle struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect dials MongoDB, verifies the connection with a ping, and returns a
// handle on the named database.
func Connect(ctx context.Context, uri, dbName string) (*Handle, error) {
	log.Info().Str("db", dbName).Msg("Connecting to MongoDB")

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetConnectTimeout(10 * time.Second)
	clientOptions.SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	log.Info().Msg("MongoDB connection established.")
	return &Handle{
		Client: client,
		DB:     client.Database(dbName),
	}, nil
}

// Close disconnects the underlying client.
func (h *Handle) Close(ctx context.Context) error {
	return h.Client.Disconnect(ctx)
}
