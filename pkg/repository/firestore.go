package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionUsers  = "users"
	collectionChunks = "chunks"

	// Firestore rejects vector queries with a larger limit
	maxFindNearestLimit = 1000
)

// Firestore stores chunks in users/{userID}/chunks. A vector index on Embedding
// together with Course is required for QueryChunks.
type Firestore struct {
	client *firestore.Client

	// model.UserID -> *firestore.CollectionRef, only for collections already ensured
	collections sync.Map
}

var _ Repository = (*Firestore)(nil)

type userRecord struct {
	UserID    model.UserID
	CreatedAt time.Time
}

// New creates a new Firestore repository
func New(ctx context.Context, projectID, databaseID string, opts ...option.ClientOption) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID))
	}

	return &Firestore{client: client}, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) collection(ctx context.Context, userID model.UserID) (*firestore.CollectionRef, error) {
	if userID == "" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "user ID is empty")
	}

	if ref, ok := r.collections.Load(userID); ok {
		return ref.(*firestore.CollectionRef), nil
	}

	userDoc := r.client.Collection(collectionUsers).Doc(string(userID))
	_, err := userDoc.Create(ctx, &userRecord{
		UserID:    userID,
		CreatedAt: time.Now(),
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return nil, goerr.Wrap(err, "failed to create user collection", goerr.V("user_id", userID))
	}

	ref := userDoc.Collection(collectionChunks)
	r.collections.Store(userID, ref)
	return ref, nil
}

func (r *Firestore) EnsureCollection(ctx context.Context, userID model.UserID) error {
	_, err := r.collection(ctx, userID)
	return err
}

func (r *Firestore) PutChunk(ctx context.Context, chunk *model.Chunk) error {
	if err := chunk.Validate(); err != nil {
		return err
	}

	coll, err := r.collection(ctx, chunk.UserID)
	if err != nil {
		return err
	}

	if _, err := coll.Doc(string(chunk.ID)).Set(ctx, chunk); err != nil {
		return goerr.Wrap(err, "failed to put chunk",
			goerr.V("user_id", chunk.UserID),
			goerr.V("chunk_id", chunk.ID))
	}

	return nil
}

func (r *Firestore) QueryChunks(ctx context.Context, userID model.UserID, embedding []float32, course model.Course, topK int) ([]*model.Chunk, error) {
	if topK <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidInput, "topK must be positive", goerr.V("top_k", topK))
	}
	if topK > maxFindNearestLimit {
		topK = maxFindNearestLimit
	}

	coll, err := r.collection(ctx, userID)
	if err != nil {
		return nil, err
	}

	query := coll.Where("Course", "==", string(course)).
		FindNearest("Embedding", firestore.Vector32(embedding), topK, firestore.DistanceMeasureCosine, nil)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var chunks []*model.Chunk
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query chunks",
				goerr.V("user_id", userID),
				goerr.V("course", course))
		}

		var chunk model.Chunk
		if err := doc.DataTo(&chunk); err != nil {
			return nil, goerr.Wrap(err, "failed to decode chunk", goerr.V("doc_id", doc.Ref.ID))
		}
		chunks = append(chunks, &chunk)
	}

	return chunks, nil
}

func (r *Firestore) DeleteCollection(ctx context.Context, userID model.UserID) error {
	if userID == "" {
		return goerr.Wrap(model.ErrInvalidInput, "user ID is empty")
	}

	userDoc := r.client.Collection(collectionUsers).Doc(string(userID))
	bw := r.client.BulkWriter(ctx)

	refs := userDoc.Collection(collectionChunks).DocumentRefs(ctx)
	for {
		ref, err := refs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			bw.End()
			return goerr.Wrap(err, "failed to list chunks", goerr.V("user_id", userID))
		}

		if _, err := bw.Delete(ref); err != nil {
			bw.End()
			return goerr.Wrap(err, "failed to enqueue chunk deletion",
				goerr.V("user_id", userID),
				goerr.V("chunk_id", ref.ID))
		}
	}
	bw.End()

	if _, err := userDoc.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete user collection", goerr.V("user_id", userID))
	}

	r.collections.Delete(userID)
	return nil
}
