package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

const recordsSchema = `
CREATE TABLE IF NOT EXISTS monitoring_records (
	run_id                           TEXT NOT NULL,
	run_ts_utc                       TEXT NOT NULL,
	run_ts_local                     TEXT NOT NULL,
	hotel_id                         TEXT NOT NULL,
	hotel_name                       TEXT NOT NULL,
	provider                         TEXT NOT NULL,
	target_date                      DATE NOT NULL,
	total_rooms                      INTEGER NOT NULL,
	available_rooms_count            INTEGER NOT NULL,
	available_room_ids_or_categories TEXT NOT NULL DEFAULT '',
	occupancy_ratio                  DOUBLE PRECISION NOT NULL,
	status                           TEXT NOT NULL,
	error_code                       TEXT NOT NULL DEFAULT '',
	error_message                    TEXT NOT NULL DEFAULT '',
	created_at                       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (run_id, hotel_id, target_date)
);
CREATE INDEX IF NOT EXISTS monitoring_records_hotel_date_idx ON monitoring_records (hotel_id, target_date);
`

const insertRecordSQL = `
INSERT INTO monitoring_records (
	run_id, run_ts_utc, run_ts_local, hotel_id, hotel_name, provider, target_date,
	total_rooms, available_rooms_count, available_room_ids_or_categories,
	occupancy_ratio, status, error_code, error_message
) VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (run_id, hotel_id, target_date) DO NOTHING`

const selectRecordsSQL = `
SELECT run_id, run_ts_utc, run_ts_local, hotel_id, hotel_name, provider,
	to_char(target_date, 'YYYY-MM-DD'), total_rooms, available_rooms_count,
	available_room_ids_or_categories, occupancy_ratio, status, error_code, error_message
FROM monitoring_records
WHERE run_id = $1
ORDER BY hotel_name, target_date`

// PostgresRecordRepository stores observation records in PostgreSQL.
type PostgresRecordRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRecordRepository(pool *pgxpool.Pool) *PostgresRecordRepository {
	return &PostgresRecordRepository{pool: pool}
}

// EnsureSchema creates the records table when missing.
func (r *PostgresRecordRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, recordsSchema); err != nil {
		return fmt.Errorf("ensure records schema: %w", err)
	}
	return nil
}

// InsertRecords writes all records in one batch. Existing (run, hotel, date)
// rows are left untouched.
func (r *PostgresRecordRepository) InsertRecords(ctx context.Context, records []model.SheetRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(insertRecordSQL,
			rec.RunID, rec.RunTsUTC, rec.RunTsLocal, rec.HotelID, rec.HotelName,
			string(rec.Provider), rec.TargetDate, rec.TotalRooms, rec.AvailableRoomsCount,
			rec.AvailableRoomIDsOrCategories, rec.OccupancyRatio, string(rec.Status),
			rec.ErrorCode, rec.ErrorMessage,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	for i := range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert record %s/%s: %w", records[i].HotelID, records[i].TargetDate, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close insert batch: %w", err)
	}
	return nil
}

// RecordsByRunID loads one run's records ordered by hotel name, then date.
func (r *PostgresRecordRepository) RecordsByRunID(ctx context.Context, runID string) ([]model.SheetRecord, error) {
	rows, err := r.pool.Query(ctx, selectRecordsSQL, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []model.SheetRecord
	for rows.Next() {
		var (
			rec              model.SheetRecord
			provider, status string
		)
		if err := rows.Scan(
			&rec.RunID, &rec.RunTsUTC, &rec.RunTsLocal, &rec.HotelID, &rec.HotelName, &provider,
			&rec.TargetDate, &rec.TotalRooms, &rec.AvailableRoomsCount,
			&rec.AvailableRoomIDsOrCategories, &rec.OccupancyRatio, &status, &rec.ErrorCode, &rec.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Provider = model.Provider(provider)
		rec.Status = model.RecordStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}
