package repo

import (
	"encoding/json"
	"time"

	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/shopspring/decimal"
)

// OrderRecord is the read-model row: latest known state of one order.
type OrderRecord struct {
	ID           string           `gorm:"column:id;primaryKey"`
	Instrument   string           `gorm:"column:instrument"`
	Side         string           `gorm:"column:side"`
	Volume       decimal.Decimal  `gorm:"column:volume;type:numeric"`
	StopLoss     *decimal.Decimal `gorm:"column:stop_loss;type:numeric"`
	TakeProfit   *decimal.Decimal `gorm:"column:take_profit;type:numeric"`
	State        string           `gorm:"column:state"`
	FilledVolume decimal.Decimal  `gorm:"column:filled_volume;type:numeric"`
	NeedsReview  bool             `gorm:"column:needs_review"`
	ReviewReason string           `gorm:"column:review_reason"`
	LastSeq      int              `gorm:"column:last_seq"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (OrderRecord) TableName() string { return "orders" }

// OrderEventRecord is one journal entry; Payload is the JSON snapshot.
type OrderEventRecord struct {
	EventID   string    `gorm:"column:event_id;primaryKey"`
	OrderID   string    `gorm:"column:order_id"`
	Seq       int       `gorm:"column:seq"`
	State     string    `gorm:"column:state"`
	Payload   []byte    `gorm:"column:payload;type:jsonb"`
	Timestamp time.Time `gorm:"column:ts"`
}

func (OrderEventRecord) TableName() string { return "order_events" }

func NewOrderRecord(o model.Order) *OrderRecord {
	c := o.Clone()
	return &OrderRecord{
		ID:           c.ID,
		Instrument:   c.Request.Instrument,
		Side:         string(c.Request.Side),
		Volume:       c.Request.Volume,
		StopLoss:     c.Request.StopLoss,
		TakeProfit:   c.Request.TakeProfit,
		State:        string(c.State),
		FilledVolume: c.FilledVolume,
		NeedsReview:  c.NeedsReview,
		ReviewReason: c.ReviewReason,
		LastSeq:      len(c.History),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// Order rebuilds the order summary held by the row. History is not stored on
// the row; see OrderEventRecord.
func (r *OrderRecord) Order() model.Order {
	return model.Order{
		ID: r.ID,
		Request: model.TradeRequest{
			Instrument: r.Instrument,
			Side:       model.OrderSide(r.Side),
			Volume:     r.Volume,
			StopLoss:   r.StopLoss,
			TakeProfit: r.TakeProfit,
		},
		State:        model.OrderState(r.State),
		FilledVolume: r.FilledVolume,
		NeedsReview:  r.NeedsReview,
		ReviewReason: r.ReviewReason,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func NewOrderEventRecord(ev *model.OrderEvent) (*OrderEventRecord, error) {
	payload, err := json.Marshal(ev.Order)
	if err != nil {
		return nil, err
	}
	return &OrderEventRecord{
		EventID:   ev.EventID,
		OrderID:   ev.OrderID,
		Seq:       ev.Seq,
		State:     string(ev.State),
		Payload:   payload,
		Timestamp: ev.Timestamp,
	}, nil
}

// Order decodes the snapshot carried by the event.
func (r *OrderEventRecord) Order() (model.Order, error) {
	var o model.Order
	err := json.Unmarshal(r.Payload, &o)
	return o, err
}
