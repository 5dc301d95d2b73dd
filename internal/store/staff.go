package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"impulse-backend/internal/models"
)

func (s *Store) staff() *mongo.Collection {
	return s.db.Collection("staff")
}

func (s *Store) FindStaffByEmail(ctx context.Context, email string) (*models.Staff, error) {
	var staff models.Staff
	err := s.staff().FindOne(ctx, bson.M{"email": email}).Decode(&staff)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrStaffNotFound
	}
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (s *Store) CreateStaff(ctx context.Context, staff *models.Staff) error {
	res, err := s.staff().InsertOne(ctx, staff)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		staff.ID = id
	}
	return nil
}
