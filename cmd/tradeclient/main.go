package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joripage/order-manager/pkg/logging"
	"github.com/joripage/order-manager/pkg/rpc/omspb"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
)

func main() {
	var (
		addr       string
		instrument string
		side       string
		volume     float64
		stopLoss   float64
		takeProfit float64
		timeout    time.Duration
	)
	flag.StringVar(&addr, "addr", "localhost:50051", "order manager address")
	flag.StringVar(&instrument, "instrument", "EURUSD", "instrument")
	flag.StringVar(&side, "side", "BUY", "BUY or SELL")
	flag.Float64Var(&volume, "volume", 1, "volume")
	flag.Float64Var(&stopLoss, "sl", 0, "stop loss, 0 for none")
	flag.Float64Var(&takeProfit, "tp", 0, "take profit, 0 for none")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "call timeout")
	flag.Parse()

	logger, err := logging.Setup("info")
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()

	req := &omspb.TradeRequest{
		Instrument: instrument,
		Side:       side,
		Volume:     volume,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		sugar.Fatalf("dial %s: %v", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	requestID := logging.NewRequestID()
	ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", requestID)

	resp, err := omspb.NewOrderManagerClient(conn).SendTradeOrder(ctx, req)
	if err != nil {
		sugar.Fatalw("send trade order", "request_id", requestID, zap.Error(err))
	}

	fmt.Println(protojson.MarshalOptions{Multiline: true, EmitUnpopulated: true}.Format(resp))
	if !resp.Success {
		os.Exit(1)
	}
}
