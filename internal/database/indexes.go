package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	log.Println("EnsureUserIndexes: creating email_unique index")
	_, err := db.Collection("users").Indexes().CreateOne(ctx, emailIndex)
	if err != nil {
		log.Println("EnsureUserIndexes: email index error:", err)
		return err
	}
	return nil
}

func EnsureMedicineIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// One batch of a medicine per brand; the duplicate check in the create
	// handler relies on this as its backstop.
	batchIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "name", Value: 1},
			{Key: "brand", Value: 1},
			{Key: "batchNumber", Value: 1},
		},
		Options: options.Index().
			SetName("name_brand_batch_unique").
			SetUnique(true),
	}

	log.Println("EnsureMedicineIndexes: creating name_brand_batch_unique index")
	_, err := db.Collection("medicines").Indexes().CreateOne(ctx, batchIndex)
	if err != nil {
		log.Println("EnsureMedicineIndexes: batch index error:", err)
		return err
	}
	return nil
}

func EnsureCartIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	userIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}},
		Options: options.Index().
			SetName("user_unique").
			SetUnique(true),
	}

	log.Println("EnsureCartIndexes: creating user_unique index")
	_, err := db.Collection("carts").Indexes().CreateOne(ctx, userIndex)
	if err != nil {
		log.Println("EnsureCartIndexes: user index error:", err)
		return err
	}
	return nil
}

func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	customerIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "customer", Value: 1}},
		Options: options.Index().SetName("customer_index"),
	}

	log.Println("EnsureOrderIndexes: creating customer_index index")
	_, err := db.Collection("orders").Indexes().CreateOne(ctx, customerIndex)
	if err != nil {
		log.Println("EnsureOrderIndexes: customer index error:", err)
		return err
	}
	return nil
}
