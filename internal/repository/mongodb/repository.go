package mongodb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/vallesolidario/huellero/internal/config"
	"github.com/vallesolidario/huellero/internal/domain/models"
)

const (
	runsCollection    = "runs"
	recordsCollection = "records"
)

// Repository defines the interface for run report storage.
type Repository interface {
	SaveRun(ctx context.Context, report models.RunReport) error
	GetRun(ctx context.Context, id string) (*models.RunReport, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
	logger *zap.Logger
}

// recordDocument is a metric record tagged with the run that produced it.
type recordDocument struct {
	RunID               string `bson:"run_id"`
	models.MetricRecord `bson:",inline"`
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, cfg config.MongoDBConfig, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(cfg.URI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		dbName: cfg.DBName,
		logger: logger,
	}, nil
}

// SaveRun stores the run summary and replaces the stored records of the
// employees and dates the run covers, so overlapping runs keep one row set.
func (r *MongoDBRepository) SaveRun(ctx context.Context, report models.RunReport) error {
	db := r.client.Database(r.dbName)

	if _, err := db.Collection(runsCollection).InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", report.ID, err)
	}

	if len(report.Records) == 0 {
		return nil
	}

	records := db.Collection(recordsCollection)
	codes, from, to := recordWindow(report.Records)
	deleted, err := records.DeleteMany(ctx, bson.M{
		"employee_code": bson.M{"$in": codes},
		"date":          bson.M{"$gte": from, "$lte": to},
	})
	if err != nil {
		return fmt.Errorf("failed to clear records for run %s: %w", report.ID, err)
	}

	if _, err := records.InsertMany(ctx, recordDocuments(report)); err != nil {
		return fmt.Errorf("failed to insert records for run %s: %w", report.ID, err)
	}

	r.logger.Info("run stored",
		zap.String("run_id", report.ID),
		zap.Int("records", len(report.Records)),
		zap.Int64("replaced", deleted.DeletedCount),
	)
	return nil
}

// GetRun loads a run summary with the records still attributed to it.
func (r *MongoDBRepository) GetRun(ctx context.Context, id string) (*models.RunReport, error) {
	db := r.client.Database(r.dbName)

	var report models.RunReport
	if err := db.Collection(runsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&report); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	findOpts := options.Find().SetSort(bson.D{
		{Key: "employee_code", Value: 1},
		{Key: "date", Value: 1},
	})
	cursor, err := db.Collection(recordsCollection).Find(ctx, bson.M{"run_id": id}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to query records of run %s: %w", id, err)
	}

	var docs []recordDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode records of run %s: %w", id, err)
	}
	for _, doc := range docs {
		report.Records = append(report.Records, doc.MetricRecord)
	}

	return &report, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func recordDocuments(report models.RunReport) []interface{} {
	docs := make([]interface{}, 0, len(report.Records))
	for _, rec := range report.Records {
		docs = append(docs, recordDocument{RunID: report.ID, MetricRecord: rec})
	}
	return docs
}

// recordWindow returns the sorted employee codes and the date range of records.
func recordWindow(records []models.MetricRecord) ([]int, time.Time, time.Time) {
	var codes []int
	from, to := records[0].Date, records[0].Date
	for _, rec := range records {
		if !slices.Contains(codes, rec.EmployeeCode) {
			codes = append(codes, rec.EmployeeCode)
		}
		if rec.Date.Before(from) {
			from = rec.Date
		}
		if rec.Date.After(to) {
			to = rec.Date
		}
	}
	slices.Sort(codes)
	return codes, from, to
}
