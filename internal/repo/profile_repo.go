package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/niveshmitr/gateway/internal/domain"
)

// EnsureProfile creates the wallet document for accountID if it does not
// exist yet, seeding the starting balance. A single upsert with $setOnInsert
// keeps concurrent bootstrap attempts from double-seeding: the balance is
// written at most once per account.
func (s *Store) EnsureProfile(ctx context.Context, accountID, email string) (*domain.Profile, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.profile.ensure",
		tracer.Tag("account_id", accountID),
	)
	defer sp.Finish()

	res := s.DB.Collection(collProfiles).FindOneAndUpdate(
		ctx,
		bson.M{"_id": accountID},
		bson.M{"$setOnInsert": bson.M{
			"email":        email,
			"cash_balance": domain.SeedBalance,
			"created_at":   time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var p domain.Profile
	if err := res.Decode(&p); err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProfile(ctx context.Context, accountID string) (*domain.Profile, error) {
	var p domain.Profile
	err := s.DB.Collection(collProfiles).FindOne(ctx, bson.M{"_id": accountID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
