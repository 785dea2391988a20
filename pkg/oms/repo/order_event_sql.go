package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderEventSQLRepo struct {
	db *gorm.DB
}

func NewOrderEventSQLRepo(db *gorm.DB) *OrderEventSQLRepo {
	return &OrderEventSQLRepo{
		db: db,
	}
}

func (s *OrderEventSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func insertIgnoreClause() clause.OnConflict {
	return clause.OnConflict{DoNothing: true}
}

func (r *OrderEventSQLRepo) BulkCreate(ctx context.Context, records []*OrderEventRecord) ([]*OrderEventRecord, error) {
	if len(records) == 0 {
		return records, nil
	}
	return records, r.dbWithContext(ctx).Clauses(insertIgnoreClause()).Create(records).Error
}

func (r *OrderEventSQLRepo) ListByOrderID(ctx context.Context, orderID string) ([]*OrderEventRecord, error) {
	var out []*OrderEventRecord
	err := r.dbWithContext(ctx).Where("order_id = ?", orderID).Order("seq").Find(&out).Error
	return out, err
}
