package mongodb

import (
	"context"
	"errors"
	"log"
	"time"

	"iacgenius/internal/domain/entity"
	"iacgenius/internal/domain/repository"
	"iacgenius/internal/infrastructure/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoHistoryRepo struct {
	col *mongo.Collection
}

func NewMongoHistoryRepo(db *mongo.Database) repository.HistoryRepository {
	col := db.Collection("generations")

	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{bson.E{Key: "id", Value: 1}}},
		{Keys: bson.D{bson.E{Key: "session_id", Value: 1}}},
	})

	return &MongoHistoryRepo{
		col: col,
	}
}

func (r *MongoHistoryRepo) Save(ctx context.Context, rec *entity.GenerationRecord) error {
	metrics.IncHistoryOp("save")

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, rec)
	if err != nil {
		metrics.IncError("mongo_history_repo", "save_error")
		return err
	}
	return nil
}

func (r *MongoHistoryRepo) GetByID(ctx context.Context, id string) (*entity.GenerationRecord, error) {
	metrics.IncHistoryOp("get")

	var rec entity.GenerationRecord
	err := r.col.FindOne(ctx, bson.M{"id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		metrics.IncError("mongo_history_repo", "get_error")
		return nil, err
	}
	return &rec, nil
}

func (r *MongoHistoryRepo) ListBySession(ctx context.Context, sessionID string) ([]*entity.GenerationRecord, error) {
	metrics.IncHistoryOp("list")

	recs, err := r.findRecords(ctx, bson.M{"session_id": sessionID}, 0)
	if err != nil {
		metrics.IncError("mongo_history_repo", "list_by_session_error")
		return nil, err
	}
	return recs, nil
}

func (r *MongoHistoryRepo) List(ctx context.Context, limit int) ([]*entity.GenerationRecord, error) {
	metrics.IncHistoryOp("list")

	recs, err := r.findRecords(ctx, bson.M{}, limit)
	if err != nil {
		metrics.IncError("mongo_history_repo", "list_error")
		return nil, err
	}
	return recs, nil
}

func (r *MongoHistoryRepo) Delete(ctx context.Context, id string) error {
	metrics.IncHistoryOp("delete")

	res, err := r.col.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		metrics.IncError("mongo_history_repo", "delete_error")
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *MongoHistoryRepo) findRecords(ctx context.Context, filter bson.M, limit int) ([]*entity.GenerationRecord, error) {
	opts := options.Find().SetSort(bson.D{bson.E{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		err := cur.Close(ctx)
		if err != nil {
			log.Printf("close cursor err: %s", err)
		}
	}()

	var result []*entity.GenerationRecord
	for cur.Next(ctx) {
		var rec entity.GenerationRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		result = append(result, &rec)
	}
	return result, cur.Err()
}
