package mongodb

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/lllypuk/ladder/internal/domain/errs"
	"github.com/lllypuk/ladder/internal/domain/ladder"
	"github.com/lllypuk/ladder/internal/domain/uuid"
)

// MongoChallengeRepository implements the ladder ChallengeRepository.
type MongoChallengeRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// ChallengeRepoOption configures MongoChallengeRepository.
type ChallengeRepoOption func(*MongoChallengeRepository)

// WithChallengeRepoLogger sets the logger for the challenge repository.
func WithChallengeRepoLogger(logger *slog.Logger) ChallengeRepoOption {
	return func(r *MongoChallengeRepository) {
		r.logger = logger
	}
}

// NewMongoChallengeRepository creates a challenge repository over collection.
func NewMongoChallengeRepository(collection *mongo.Collection, opts ...ChallengeRepoOption) *MongoChallengeRepository {
	r := &MongoChallengeRepository{
		collection: collection,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type challengeDocument struct {
	ChallengeID  string    `bson:"challenge_id"`
	TournamentID string    `bson:"tournament_id"`
	Name         string    `bson:"name"`
	NameKey      string    `bson:"name_key"`
	ChallengerID string    `bson:"challenger_id"`
	DefenderID   string    `bson:"defender_id"`
	CreatedAt    time.Time `bson:"created_at"`
}

// ExistsByName reports whether the tournament has a challenge called name.
func (r *MongoChallengeRepository) ExistsByName(ctx context.Context, tournamentID uuid.UUID, name string) (bool, error) {
	n, err := CountFilter(ctx, r.collection, bson.M{
		"tournament_id": tournamentID.String(),
		"name_key":      ladder.NameKey(name),
	})
	if err != nil {
		return false, HandleMongoError(err, "challenge")
	}
	return n > 0, nil
}

// CountByTournament counts the tournament's challenges.
func (r *MongoChallengeRepository) CountByTournament(ctx context.Context, tournamentID uuid.UUID) (int, error) {
	n, err := CountFilter(ctx, r.collection, bson.M{"tournament_id": tournamentID.String()})
	if err != nil {
		return 0, HandleMongoError(err, "challenge")
	}
	return n, nil
}

// ListByTournament returns one window of challenges, oldest first.
func (r *MongoChallengeRepository) ListByTournament(
	ctx context.Context,
	tournamentID uuid.UUID,
	offset, limit int,
) ([]*ladder.Challenge, error) {
	if offset < 0 || limit <= 0 {
		return nil, errs.ErrInvalidInput
	}
	limit = DefaultLimitWithMax(limit, DefaultPaginationLimit, MaxPaginationLimit)

	opts := FindWithPagination(offset, limit, "created_at", 1)
	return listDocuments(ctx, r.collection, bson.M{"tournament_id": tournamentID.String()}, opts,
		documentToChallenge, "challenge")
}

// Save inserts c. The unique index on (tournament_id, name_key) rejects duplicates.
func (r *MongoChallengeRepository) Save(ctx context.Context, c *ladder.Challenge) error {
	if c == nil || c.ID().IsZero() {
		return errs.ErrInvalidInput
	}

	doc := challengeDocument{
		ChallengeID:  c.ID().String(),
		TournamentID: c.TournamentID().String(),
		Name:         c.Name(),
		NameKey:      c.NameKey(),
		ChallengerID: c.ChallengerID(),
		DefenderID:   c.DefenderID(),
		CreatedAt:    c.CreatedAt(),
	}

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		r.logger.ErrorContext(ctx, "failed to save challenge",
			slog.String("challenge_id", doc.ChallengeID),
			slog.String("error", err.Error()),
		)
	}
	return HandleMongoError(err, "challenge")
}

func documentToChallenge(doc *challengeDocument) *ladder.Challenge {
	return ladder.ReconstructChallenge(
		uuid.UUID(doc.ChallengeID),
		uuid.UUID(doc.TournamentID),
		doc.Name,
		doc.ChallengerID,
		doc.DefenderID,
		doc.CreatedAt,
	)
}
