package mongodb

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lllypuk/ladder/internal/domain/errs"
	"github.com/lllypuk/ladder/internal/domain/ladder"
	"github.com/lllypuk/ladder/internal/domain/uuid"
)

// MongoTournamentRepository implements the ladder TournamentRepository.
type MongoTournamentRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// TournamentRepoOption configures MongoTournamentRepository.
type TournamentRepoOption func(*MongoTournamentRepository)

// WithTournamentRepoLogger sets the logger for the tournament repository.
func WithTournamentRepoLogger(logger *slog.Logger) TournamentRepoOption {
	return func(r *MongoTournamentRepository) {
		r.logger = logger
	}
}

// NewMongoTournamentRepository creates a tournament repository over collection.
func NewMongoTournamentRepository(collection *mongo.Collection, opts ...TournamentRepoOption) *MongoTournamentRepository {
	r := &MongoTournamentRepository{
		collection: collection,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type tournamentDocument struct {
	TournamentID string    `bson:"tournament_id"`
	WorkspaceID  string    `bson:"workspace_id"`
	Name         string    `bson:"name"`
	NameKey      string    `bson:"name_key"`
	OwnerID      string    `bson:"owner_id"`
	MaxPlayers   int       `bson:"max_players"`
	Players      []string  `bson:"players"`
	CreatedAt    time.Time `bson:"created_at"`
	Version      int       `bson:"version"`
}

// FindByID finds a tournament by id.
func (r *MongoTournamentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ladder.Tournament, error) {
	if id.IsZero() {
		return nil, errs.ErrInvalidInput
	}
	return r.findOne(ctx, bson.M{"tournament_id": id.String()})
}

// FindByName finds a tournament by normalised name within a workspace.
func (r *MongoTournamentRepository) FindByName(ctx context.Context, workspaceID, name string) (*ladder.Tournament, error) {
	if workspaceID == "" || name == "" {
		return nil, errs.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"workspace_id": workspaceID, "name_key": ladder.NameKey(name)})
}

// ListByWorkspace returns the workspace's tournaments, oldest first.
func (r *MongoTournamentRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*ladder.Tournament, error) {
	opts := FindWithPagination(0, MaxPaginationLimit, "created_at", 1)
	return listDocuments(ctx, r.collection, bson.M{"workspace_id": workspaceID}, opts,
		documentToTournament, "tournament")
}

// Save inserts a never-stored tournament, or updates the document only while
// it is still at t's version. A lost race yields errs.ErrConcurrentModification.
func (r *MongoTournamentRepository) Save(ctx context.Context, t *ladder.Tournament) error {
	if t == nil || t.ID().IsZero() {
		return errs.ErrInvalidInput
	}

	doc := tournamentToDocument(t)
	doc.Version = t.Version() + 1

	var err error
	if t.Version() == 0 {
		_, err = r.collection.InsertOne(ctx, doc)
	} else {
		err = r.update(ctx, doc, t.Version())
	}

	if err != nil {
		expected := mongo.IsDuplicateKeyError(err) || errors.Is(err, mongo.ErrNoDocuments) ||
			errors.Is(err, errs.ErrConcurrentModification)
		if !expected {
			r.logger.ErrorContext(ctx, "failed to save tournament",
				slog.String("tournament_id", doc.TournamentID),
				slog.String("name", doc.Name),
				slog.String("error", err.Error()),
			)
		}
		if errors.Is(err, errs.ErrConcurrentModification) {
			return err
		}
		return HandleMongoError(err, "tournament")
	}

	t.MarkSaved()
	return nil
}

func (r *MongoTournamentRepository) update(ctx context.Context, doc tournamentDocument, expected int) error {
	filter := bson.M{"tournament_id": doc.TournamentID, "version": expected}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": doc})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := CountFilter(ctx, r.collection, bson.M{"tournament_id": doc.TournamentID})
	if err != nil {
		return err
	}
	if n == 0 {
		return mongo.ErrNoDocuments
	}
	return errs.ErrConcurrentModification
}

func (r *MongoTournamentRepository) findOne(ctx context.Context, filter bson.M) (*ladder.Tournament, error) {
	var doc tournamentDocument
	err := r.collection.FindOne(ctx, filter, options.FindOne()).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.ErrorContext(ctx, "failed to find tournament", slog.String("error", err.Error()))
		}
		return nil, HandleMongoError(err, "tournament")
	}
	return documentToTournament(&doc), nil
}

func tournamentToDocument(t *ladder.Tournament) tournamentDocument {
	return tournamentDocument{
		TournamentID: t.ID().String(),
		WorkspaceID:  t.WorkspaceID(),
		Name:         t.Name(),
		NameKey:      t.NameKey(),
		OwnerID:      t.OwnerID(),
		MaxPlayers:   t.MaxPlayers(),
		Players:      t.Players(),
		CreatedAt:    t.CreatedAt(),
		Version:      t.Version(),
	}
}

func documentToTournament(doc *tournamentDocument) *ladder.Tournament {
	return ladder.ReconstructTournament(
		uuid.UUID(doc.TournamentID),
		doc.WorkspaceID,
		doc.Name,
		doc.OwnerID,
		doc.MaxPlayers,
		doc.Players,
		doc.CreatedAt,
		doc.Version,
	)
}
