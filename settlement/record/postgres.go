package record

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// settlementRecordRow is the relational shape of a SettlementRecord.
type settlementRecordRow struct {
	ID             uint      `gorm:"primaryKey"`
	AgreementID    string    `gorm:"size:64;uniqueIndex:idx_settlement_key,priority:1;not null"`
	Method         string    `gorm:"size:32;uniqueIndex:idx_settlement_key,priority:2;not null"`
	TransactionRef string    `gorm:"size:128;uniqueIndex:idx_settlement_key,priority:3;not null"`
	CustomerID     string    `gorm:"size:64;index;not null"`
	Amount         string    `gorm:"size:64;not null"`
	Status         string    `gorm:"size:16;not null"`
	RecordedAt     time.Time `gorm:"not null"`
	Metadata       string    `gorm:"type:text"`
}

func (settlementRecordRow) TableName() string {
	return "settlement_records"
}

// GormSink persists settlement records to Postgres through GORM. All records
// of one settlement go in a single database transaction.
type GormSink struct {
	db *gorm.DB
}

var _ Sink = (*GormSink)(nil)

// NewGormSink creates the sink and migrates its table.
func NewGormSink(db *gorm.DB) (*GormSink, error) {
	if err := db.AutoMigrate(&settlementRecordRow{}); err != nil {
		return nil, fmt.Errorf("record: migrate settlement_records: %w", err)
	}

	return &GormSink{db: db}, nil
}

// Persist implements Sink.
func (s *GormSink) Persist(ctx context.Context, records []SettlementRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]settlementRecordRow, 0, len(records))

	for _, rec := range records {
		metadata := ""

		if rec.Metadata != nil {
			raw, err := json.Marshal(rec.Metadata)
			if err != nil {
				return fmt.Errorf("record: marshal metadata for ref %s: %w", rec.TransactionRef, err)
			}

			metadata = string(raw)
		}

		rows = append(rows, settlementRecordRow{
			AgreementID:    rec.AgreementID,
			Method:         string(rec.Method),
			TransactionRef: rec.TransactionRef,
			CustomerID:     rec.CustomerID,
			Amount:         rec.Amount.String(),
			Status:         rec.Status,
			RecordedAt:     rec.RecordedAt,
			Metadata:       metadata,
		})
	}

	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("record: persist %d settlement records: %w", len(rows), err)
	}

	return nil
}
