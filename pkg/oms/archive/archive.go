// Package archive keeps terminal orders in Parquet files once they leave the
// in-memory registry.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
)

// OrderRecord is the on-disk schema. Decimals are kept as strings so no
// precision is lost; History is the JSON encoded history.
type OrderRecord struct {
	ID           string `parquet:"id"`
	Instrument   string `parquet:"instrument"`
	Side         string `parquet:"side"`
	Volume       string `parquet:"volume"`
	StopLoss     string `parquet:"stop_loss"`
	TakeProfit   string `parquet:"take_profit"`
	State        string `parquet:"state"`
	FilledVolume string `parquet:"filled_volume"`
	NeedsReview  bool   `parquet:"needs_review"`
	ReviewReason string `parquet:"review_reason"`
	CreatedAt    int64  `parquet:"created_at,timestamp(nanosecond)"`
	UpdatedAt    int64  `parquet:"updated_at,timestamp(nanosecond)"`
	History      string `parquet:"history"`
}

// ParquetArchiver writes one file per batch under <dir>/<YYYY-MM-DD>/.
type ParquetArchiver struct {
	dir string
	now func() time.Time

	mu  sync.Mutex
	seq int
}

func NewParquetArchiver(dir string) *ParquetArchiver {
	return &ParquetArchiver{dir: dir, now: time.Now}
}

func (a *ParquetArchiver) Archive(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	records := make([]OrderRecord, 0, len(orders))
	for _, o := range orders {
		rec, err := toRecord(o)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	now := a.now().UTC()
	path := filepath.Join(a.dir, now.Format(time.DateOnly),
		fmt.Sprintf("orders-%d-%04d.parquet", now.UnixNano(), a.seq))
	return writeParquetFile(path, records)
}

// ReadDay returns every order archived on day, ordered by ID.
func (a *ParquetArchiver) ReadDay(_ context.Context, day time.Time) ([]model.Order, error) {
	dir := filepath.Join(a.dir, day.UTC().Format(time.DateOnly))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []model.Order
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		records, err := parquet.ReadFile[OrderRecord](filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		for _, rec := range records {
			o, err := fromRecord(rec)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Name(), err)
			}
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func optional(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func parseOptional(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func toRecord(o model.Order) (OrderRecord, error) {
	history, err := json.Marshal(o.History)
	if err != nil {
		return OrderRecord{}, fmt.Errorf("encode history of %s: %w", o.ID, err)
	}
	return OrderRecord{
		ID:           o.ID,
		Instrument:   o.Request.Instrument,
		Side:         string(o.Request.Side),
		Volume:       o.Request.Volume.String(),
		StopLoss:     optional(o.Request.StopLoss),
		TakeProfit:   optional(o.Request.TakeProfit),
		State:        string(o.State),
		FilledVolume: o.FilledVolume.String(),
		NeedsReview:  o.NeedsReview,
		ReviewReason: o.ReviewReason,
		CreatedAt:    o.CreatedAt.UnixNano(),
		UpdatedAt:    o.UpdatedAt.UnixNano(),
		History:      string(history),
	}, nil
}

func fromRecord(rec OrderRecord) (model.Order, error) {
	o := model.Order{
		ID:           rec.ID,
		State:        model.OrderState(rec.State),
		NeedsReview:  rec.NeedsReview,
		ReviewReason: rec.ReviewReason,
		CreatedAt:    time.Unix(0, rec.CreatedAt).UTC(),
		UpdatedAt:    time.Unix(0, rec.UpdatedAt).UTC(),
	}
	o.Request.Instrument = rec.Instrument
	o.Request.Side = model.OrderSide(rec.Side)

	var err error
	if o.Request.Volume, err = decimal.NewFromString(rec.Volume); err != nil {
		return model.Order{}, fmt.Errorf("order %s volume: %w", rec.ID, err)
	}
	if o.FilledVolume, err = decimal.NewFromString(rec.FilledVolume); err != nil {
		return model.Order{}, fmt.Errorf("order %s filled volume: %w", rec.ID, err)
	}
	if o.Request.StopLoss, err = parseOptional(rec.StopLoss); err != nil {
		return model.Order{}, fmt.Errorf("order %s stop loss: %w", rec.ID, err)
	}
	if o.Request.TakeProfit, err = parseOptional(rec.TakeProfit); err != nil {
		return model.Order{}, fmt.Errorf("order %s take profit: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(rec.History), &o.History); err != nil {
		return model.Order{}, fmt.Errorf("order %s history: %w", rec.ID, err)
	}
	return o, nil
}
