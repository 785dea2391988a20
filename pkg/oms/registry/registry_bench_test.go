package registry

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/joripage/order-manager/pkg/oms/model"
)

func BenchmarkCreate(b *testing.B) {
	r := New(Config{})
	ctx := context.Background()
	req := buyReq("1")

	b.ReportAllocs()
	for b.Loop() {
		if _, err := r.Create(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCreateParallel(b *testing.B) {
	r := New(Config{})
	ctx := context.Background()
	req := buyReq("1")

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := r.Create(ctx, req); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkTransitionParallel(b *testing.B) {
	r := New(Config{})
	ctx := context.Background()
	ids := make([]string, b.N)
	for i := range ids {
		id, err := r.Create(ctx, buyReq("1"))
		if err != nil {
			b.Fatal(err)
		}
		ids[i] = id
	}

	var next atomic.Int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			id := ids[next.Add(1)-1]
			if _, err := r.Transition(ctx, id, model.Event{OrderID: id, Kind: model.EventAccept}); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkGetParallel(b *testing.B) {
	r := New(Config{})
	id, err := r.Create(context.Background(), buyReq("1"))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, ok := r.Get(id); !ok {
				b.Fatal("missing order")
			}
		}
	})
}
