package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"toolhaus/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	maxTxnAttempts = 5
	txnBackoffBase = 25 * time.Millisecond
)

// MongoStore runs order transactions as real multi-document mongo
// transactions. The driver's own open-ended retry is not used; the
// retry loop here is explicit and bounded so contention storms
// surface as ErrTransactionConflict instead of hanging.
type MongoStore struct {
	client   *mongo.Client
	products *mongo.Collection
	orders   *mongo.Collection
}

func NewMongoStore(client *mongo.Client, products, orders *mongo.Collection) *MongoStore {
	return &MongoStore{client: client, products: products, orders: orders}
}

func (m *MongoStore) InTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return retryTxnBody(ctx, func() error {
		return mongo.WithSession(ctx, session, func(sc mongo.SessionContext) error {
			if err := session.StartTransaction(txnOpts); err != nil {
				return err
			}
			if err := fn(sc); err != nil {
				_ = session.AbortTransaction(sc)
				return err
			}
			// An unknown commit result must never restart the body:
			// the commit may already have landed, and re-running fn
			// would re-apply its writes. Only the commit is retried.
			return retryCommit(ctx, func() error {
				return session.CommitTransaction(sc)
			})
		})
	})
}

// retryTxnBody re-runs the whole transaction while the server labels
// the failure TransientTransactionError, up to maxTxnAttempts with
// doubling backoff. Exhaustion surfaces as ErrTransactionConflict.
func retryTxnBody(ctx context.Context, attempt func() error) error {
	backoff := txnBackoffBase
	var lastErr error
	for i := 1; i <= maxTxnAttempts; i++ {
		err := attempt()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return fmt.Errorf("%w (after %d attempts): %v", ErrTransactionConflict, maxTxnAttempts, lastErr)
}

// retryCommit re-issues only the commit while its outcome is unknown
// (UnknownTransactionCommitResult), bounded like the body retry.
func retryCommit(ctx context.Context, commit func() error) error {
	backoff := txnBackoffBase
	var lastErr error
	for i := 1; i <= maxTxnAttempts; i++ {
		err := commit()
		if err == nil {
			return nil
		}
		if !isUnknownCommit(err) {
			return err
		}
		lastErr = err

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return fmt.Errorf("%w (commit outcome unknown after %d attempts): %v", ErrTransactionConflict, maxTxnAttempts, lastErr)
}

// isTransient reports whether the server flagged the error as safe to
// retry from the top of the transaction.
func isTransient(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel("TransientTransactionError")
	}
	return false
}

// isUnknownCommit reports whether the commit outcome is unknown and
// only the commit itself may be re-issued.
func isUnknownCommit(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel("UnknownTransactionCommitResult")
	}
	return false
}

func (m *MongoStore) FindProduct(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := m.products.FindOne(ctx, bson.M{"productid": productID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (m *MongoStore) AdjustStock(ctx context.Context, productID string, delta int) error {
	filter := bson.M{"productid": productID}
	if delta < 0 {
		// Guarded decrement: never drive stockCount below zero even
		// if the snapshot check raced something unexpected.
		filter["stockCount"] = bson.M{"$gte": -delta}
	}
	res, err := m.products.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"stockCount": delta},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("conditional stock update matched no document for %s", productID)
	}
	return nil
}

func (m *MongoStore) InsertOrder(ctx context.Context, order *models.Order) error {
	_, err := m.orders.InsertOne(ctx, order)
	return err
}

func (m *MongoStore) FindOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := m.orders.FindOne(ctx, bson.M{"orderid": orderID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (m *MongoStore) FindOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := m.orders.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var list []models.Order
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Order{}
	}
	return list, nil
}

func (m *MongoStore) MarkOrderCancelled(ctx context.Context, orderID string, at time.Time) error {
	res, err := m.orders.UpdateOne(ctx,
		bson.M{"orderid": orderID},
		bson.M{"$set": bson.M{"status": models.OrderStatusCancelled, "cancelledAt": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}
