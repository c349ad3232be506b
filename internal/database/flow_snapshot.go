package repository

import (
	"OrderFlow/bot/flow"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SaveFlowSnapshot persists a user's flow snapshot by user_id.
func (m *MongoDB) SaveFlowSnapshot(ctx context.Context, snapshot *flow.Snapshot) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(flowSnapshotsCollection)

	filter := bson.D{{Key: "user_id", Value: snapshot.UserID}}
	update := bson.D{{Key: "$set", Value: snapshot}}
	opts := options.Update().SetUpsert(true)

	if _, err = collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("mongodb upsert error: %w", err)
	}
	return nil
}

// LoadFlowSnapshot retrieves a user's flow snapshot, nil when there is none.
func (m *MongoDB) LoadFlowSnapshot(ctx context.Context, userID string) (*flow.Snapshot, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(flowSnapshotsCollection)

	var snapshot flow.Snapshot
	err = collection.FindOne(ctx, bson.D{{Key: "user_id", Value: userID}}).Decode(&snapshot)
	if err != nil {
		return nil, m.findError(err)
	}
	return &snapshot, nil
}

// DeleteFlowSnapshot removes a user's flow snapshot.
func (m *MongoDB) DeleteFlowSnapshot(ctx context.Context, userID string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(flowSnapshotsCollection)

	_, err = collection.DeleteOne(ctx, bson.D{{Key: "user_id", Value: userID}})
	return err
}
