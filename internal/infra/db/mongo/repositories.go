package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "rateplans/internal/domain/availability"
	domainproperties "rateplans/internal/domain/properties"
	domainrateplans "rateplans/internal/domain/rateplans"
	domainreservations "rateplans/internal/domain/reservations"
)

// ErrConcurrentUpdate is returned for aggregates other than rate plans whose
// version moved since they were read.
var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

// saveVersioned upserts doc guarded by the version the caller read. A stale
// version either matches nothing or collides with the existing _id.
func saveVersioned(ctx context.Context, col *mongo.Collection, id string, version int64, doc any, conflict error) error {
	filter := bson.M{"_id": id, "version": version}
	res, err := col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return conflict
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return conflict
	}
	return nil
}

type RatePlanRepository struct {
	col *mongo.Collection
}

func NewRatePlanRepository(db *mongo.Database) *RatePlanRepository {
	return &RatePlanRepository{col: db.Collection(colRatePlans)}
}

func (r *RatePlanRepository) ByID(ctx context.Context, id domainrateplans.RatePlanID) (*domainrateplans.RatePlan, error) {
	var doc ratePlanDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainrateplans.ErrRatePlanNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *RatePlanRepository) ListByProperty(ctx context.Context, propertyID domainproperties.PropertyID, filter domainrateplans.ListFilter) ([]*domainrateplans.RatePlan, error) {
	query := bson.M{"property_id": string(propertyID)}
	if filter.OnlyActive {
		query["is_active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "_id", Value: 1}})
	plans, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	if filter.OverridesWithin != nil {
		for _, plan := range plans {
			plan.TrimOverrides(*filter.OverridesWithin)
		}
	}
	return plans, nil
}

func (r *RatePlanRepository) ListDerived(ctx context.Context, baseID domainrateplans.RatePlanID) ([]*domainrateplans.RatePlan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return r.find(ctx, bson.M{"base_rate_plan_id": string(baseID)}, opts)
}

func (r *RatePlanRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]*domainrateplans.RatePlan, error) {
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	var docs []ratePlanDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainrateplans.RatePlan, 0, len(docs))
	for _, doc := range docs {
		plan, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, plan)
	}
	return out, nil
}

func (r *RatePlanRepository) Save(ctx context.Context, plan *domainrateplans.RatePlan) error {
	doc := newRatePlanDocument(plan)
	doc.Version = plan.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, plan.Version, doc, domainrateplans.ErrConcurrentUpdate); err != nil {
		return err
	}
	plan.Version = doc.Version
	return nil
}

func (r *RatePlanRepository) Delete(ctx context.Context, id domainrateplans.RatePlanID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainrateplans.ErrRatePlanNotFound
	}
	return nil
}

type ReservationRepository struct {
	col *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{col: db.Collection(colReservations)}
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainreservations.ReservationID) (*domainreservations.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreservations.ErrReservationNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *ReservationRepository) Save(ctx context.Context, reservation *domainreservations.Reservation) error {
	doc := newReservationDocument(reservation)
	doc.Version = reservation.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, reservation.Version, doc, ErrConcurrentUpdate); err != nil {
		return err
	}
	reservation.Version = doc.Version
	return nil
}

func (r *ReservationRepository) CountByRatePlan(ctx context.Context, ratePlanID string) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"rate_plan_id": ratePlanID})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection(colProperties)}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperties.PropertyID) (*domainproperties.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainproperties.ErrPropertyNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PropertyRepository) Save(ctx context.Context, property *domainproperties.Property) error {
	doc := newPropertyDocument(property)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type AvailabilityRepository struct {
	col *mongo.Collection
}

func NewAvailabilityRepository(db *mongo.Database) *AvailabilityRepository {
	return &AvailabilityRepository{col: db.Collection(colCalendars)}
}

func (r *AvailabilityRepository) Calendar(ctx context.Context, id domainproperties.PropertyID) (*domainavailability.Calendar, error) {
	var doc calendarDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainavailability.NewCalendar(id), nil
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *AvailabilityRepository) Save(ctx context.Context, calendar *domainavailability.Calendar) error {
	doc := newCalendarDocument(calendar)
	doc.Version = calendar.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, calendar.Version, doc, ErrConcurrentUpdate); err != nil {
		return err
	}
	calendar.Version = doc.Version
	return nil
}

var (
	_ domainrateplans.Repository    = (*RatePlanRepository)(nil)
	_ domainreservations.Repository = (*ReservationRepository)(nil)
	_ domainproperties.Repository   = (*PropertyRepository)(nil)
	_ domainavailability.Repository = (*AvailabilityRepository)(nil)
)
