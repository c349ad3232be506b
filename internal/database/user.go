package repository

import (
	"OrderFlow/entity"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"time"
)

func (m *MongoDB) UpsertUser(user entity.User) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	user.LastSeen = time.Now()

	collection := connection.Database(m.database).Collection(usersCollection)
	filter := bson.D{{Key: "user_id", Value: user.UserID}}
	set := bson.M{
		"user_id":  user.UserID,
		"phone":    user.Phone,
		"lastSeen": user.LastSeen,
	}
	if user.TelegramId != 0 {
		set["telegram_id"] = user.TelegramId
	}
	if user.UserSequence != 0 {
		set["user_sequence"] = user.UserSequence
	}

	_, err = collection.UpdateOne(m.ctx, filter, bson.M{"$set": set}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb upsert error: %w", err)
	}
	return nil
}

func (m *MongoDB) GetUserByTelegramId(telegramId int64) (*entity.User, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(usersCollection)
	filter := bson.D{{Key: "telegram_id", Value: telegramId}}

	var user entity.User
	err = collection.FindOne(m.ctx, filter).Decode(&user)
	if err != nil {
		return nil, m.findError(err)
	}

	return &user, nil
}
