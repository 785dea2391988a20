package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

type OrderSQLRepo struct {
	db *gorm.DB
}

func NewOrderSQLRepo(db *gorm.DB) *OrderSQLRepo {
	return &OrderSQLRepo{
		db: db,
	}
}

func (s *OrderSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

var orderUpsertColumns = []string{
	"state", "filled_volume", "needs_review", "review_reason", "last_seq", "updated_at",
}

func upsertClause() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(orderUpsertColumns),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "orders.last_seq < excluded.last_seq"},
		}},
	}
}

func (r *OrderSQLRepo) Upsert(ctx context.Context, record *OrderRecord) error {
	return r.dbWithContext(ctx).Clauses(upsertClause()).Create(record).Error
}

func (r *OrderSQLRepo) Get(ctx context.Context, id string) (*OrderRecord, error) {
	var rec OrderRecord
	err := r.dbWithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *OrderSQLRepo) List(ctx context.Context, filter ListFilter) ([]*OrderRecord, error) {
	var out []*OrderRecord
	err := r.listQuery(ctx, filter).Find(&out).Error
	return out, err
}

func (r *OrderSQLRepo) listQuery(ctx context.Context, filter ListFilter) *gorm.DB {
	q := r.dbWithContext(ctx).Model(&OrderRecord{})
	if len(filter.States) > 0 {
		q = q.Where("state IN ?", filter.States)
	}
	if filter.Instrument != "" {
		q = q.Where("instrument = ?", filter.Instrument)
	}
	if filter.NeedsReview != nil {
		q = q.Where("needs_review = ?", *filter.NeedsReview)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	return q.Order("created_at, id")
}
