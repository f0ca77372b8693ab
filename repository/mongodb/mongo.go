package mongodb

import (
	"context"
	"time"

	"bakery-orders/errs"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const maxRetries = 3

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	return client, nil
}

// withRetry runs op with bounded exponential backoff. Only transient
// failures are retried; anything that fails the same way every time
// (decode failures, duplicate keys) surfaces immediately with its own
// error. Exhausted retries surface as an Unavailable error so the
// boundary can answer 503 instead of crashing a request on a store
// hiccup.
func withRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond

	err := backoff.Retry(func() error {
		err := op()
		if err == nil || transient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx))
	if err == nil {
		return nil
	}
	if transient(err) {
		return errs.Wrap(errs.KindUnavailable, "store unavailable", err)
	}
	return err
}

// transient reports whether the error is worth retrying: connectivity
// and timeout failures.
func transient(err error) bool {
	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}
