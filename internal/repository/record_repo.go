package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
	"github.com/sylvlondon/hotelmonitoring/pkg/util"
	"google.golang.org/api/iterator"
)

// FirestoreRecordRepository stores observation records in Firestore.
type FirestoreRecordRepository struct {
	client *firestore.Client
}

func NewFirestoreRecordRepository(client *firestore.Client) *FirestoreRecordRepository {
	return &FirestoreRecordRepository{client: client}
}

// InsertRecords writes records in batches. Documents are keyed by
// (run, hotel, date) and created once; a second insert of the same key fails.
func (r *FirestoreRecordRepository) InsertRecords(ctx context.Context, records []model.SheetRecord) error {
	if len(records) == 0 {
		return nil
	}
	const batchSize = 400

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := r.client.Batch()
		for _, rec := range records[start:end] {
			ref := r.client.Collection(recordsCollection).Doc(util.RecordKey(rec.RunID, rec.HotelID, rec.TargetDate))
			batch.Create(ref, rec)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("commit records [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

// RecordsByRunID loads one run's records ordered by hotel name, then date.
func (r *FirestoreRecordRepository) RecordsByRunID(ctx context.Context, runID string) ([]model.SheetRecord, error) {
	iter := r.client.Collection(recordsCollection).Where("runId", "==", runID).Documents(ctx)
	defer iter.Stop()

	var records []model.SheetRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate records: %w", err)
		}
		var rec model.SheetRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", doc.Ref.ID, err)
		}
		records = append(records, rec)
	}
	sortRecords(records)
	return records, nil
}
