package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores records in a collection keyed by a unique "id" field. The
// funnel document is kept as a nested BSON document so it stays queryable.
type MongoRepo struct {
	col *mongo.Collection
}

type mongoRecord struct {
	ID          string     `bson:"id"`
	Name        string     `bson:"name"`
	FunnelData  bson.D     `bson:"funnel_data"`
	Status      Status     `bson:"status"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
	PublishedAt *time.Time `bson:"published_at,omitempty"`
}

// NewMongoRepo ensures the unique index on "id" and the listing index.
func NewMongoRepo(ctx context.Context, col *mongo.Collection) (*MongoRepo, error) {
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("ensure funnel indexes: %w", err)
	}
	return &MongoRepo{col: col}, nil
}

func toMongo(r *Record) (*mongoRecord, error) {
	data, err := jsonToBSON(r.FunnelData)
	if err != nil {
		return nil, err
	}
	return &mongoRecord{
		ID:          r.ID,
		Name:        r.Name,
		FunnelData:  data,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		PublishedAt: r.PublishedAt,
	}, nil
}

func fromMongo(m *mongoRecord) (*Record, error) {
	data, err := bson.MarshalExtJSON(m.FunnelData, false, false)
	if err != nil {
		return nil, fmt.Errorf("decode funnel_data of %s: %w", m.ID, err)
	}
	r := &Record{
		ID:         m.ID,
		Name:       m.Name,
		FunnelData: json.RawMessage(data),
		Status:     m.Status,
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
	if m.PublishedAt != nil {
		t := m.PublishedAt.UTC()
		r.PublishedAt = &t
	}
	return r, nil
}

func jsonToBSON(raw json.RawMessage) (bson.D, error) {
	if len(raw) == 0 {
		return bson.D{}, nil
	}
	var d bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &d); err != nil {
		return nil, fmt.Errorf("encode funnel_data: %w", err)
	}
	return d, nil
}

func (m *MongoRepo) Create(ctx context.Context, r *Record) error {
	stamp(r)
	doc, err := toMongo(r)
	if err != nil {
		return err
	}
	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*Record, error) {
	var doc mongoRecord
	if err := m.col.FindOne(ctx, bson.M{"id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fromMongo(&doc)
}

func (m *MongoRepo) List(ctx context.Context, status Status) ([]*Record, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "id", Value: -1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Record{}
	for cur.Next(ctx) {
		var doc mongoRecord
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		r, err := fromMongo(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, cur.Err()
}

func (m *MongoRepo) Update(ctx context.Context, id string, u Update) (*Record, error) {
	set := bson.M{"updated_at": now()}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.FunnelData != nil {
		data, err := jsonToBSON(u.FunnelData)
		if err != nil {
			return nil, err
		}
		set["funnel_data"] = data
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.PublishedAt != nil {
		set["published_at"] = u.PublishedAt.UTC().Truncate(time.Millisecond)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc mongoRecord
	err := m.col.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fromMongo(&doc)
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
