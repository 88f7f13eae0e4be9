package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
	"google.golang.org/api/iterator"
)

// FirestoreRunRepository manages run lifecycle documents.
type FirestoreRunRepository struct {
	client *firestore.Client
}

func NewFirestoreRunRepository(client *firestore.Client) *FirestoreRunRepository {
	return &FirestoreRunRepository{client: client}
}

func (r *FirestoreRunRepository) CreateRun(ctx context.Context, run model.RunSummary) error {
	if run.RunID == "" {
		return fmt.Errorf("runId is required")
	}
	ref := r.client.Collection(runsCollection).Doc(run.RunID)
	if _, err := ref.Set(ctx, run); err != nil {
		return fmt.Errorf("create run %s: %w", run.RunID, err)
	}
	return nil
}

func (r *FirestoreRunRepository) UpdateRun(ctx context.Context, run model.RunSummary) error {
	if run.RunID == "" {
		return fmt.Errorf("runId is required")
	}
	ref := r.client.Collection(runsCollection).Doc(run.RunID)
	if _, err := ref.Set(ctx, run); err != nil {
		return fmt.Errorf("update run %s: %w", run.RunID, err)
	}
	return nil
}

func (r *FirestoreRunRepository) GetRun(ctx context.Context, runID string) (model.RunSummary, error) {
	iter := r.client.Collection(runsCollection).Where("runId", "==", runID).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return model.RunSummary{}, ErrRunNotFound
	}
	if err != nil {
		return model.RunSummary{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	var run model.RunSummary
	if err := doc.DataTo(&run); err != nil {
		return model.RunSummary{}, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (r *FirestoreRunRepository) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	iter := r.client.Collection(runsCollection).
		OrderBy("startedAt", firestore.Desc).
		Limit(listLimit(limit)).
		Documents(ctx)
	defer iter.Stop()

	var runs []model.RunSummary
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate runs: %w", err)
		}
		var run model.RunSummary
		if err := doc.DataTo(&run); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", doc.Ref.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}
