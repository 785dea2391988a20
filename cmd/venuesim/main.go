package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joripage/order-manager/pkg/logging"
	"github.com/joripage/order-manager/pkg/venuesim"
	"go.uber.org/zap"
)

// Reads commands such as "ORD-1 fill 0.5" from stdin and sends them to the
// connected OMS as execution reports.
func main() {
	var (
		configFile string
		logLevel   string
	)
	flag.StringVar(&configFile, "config-file", "./config/venue_sim.cfg", "FIX acceptor settings")
	flag.StringVar(&logLevel, "log-level", "info", "log level")
	flag.Parse()

	logger, err := logging.Setup(logLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // nolint

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim, err := venuesim.NewSimulator(configFile, logger)
	if err != nil {
		logger.Fatal("create simulator", zap.Error(err))
	}
	if err := sim.Start(); err != nil {
		logger.Fatal("start simulator", zap.Error(err))
	}
	defer sim.Stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Println("venue simulator ready: <order-id> <new|reject|fill|cancel|expire> [qty] [text]")
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "" {
				continue
			}
			r, err := venuesim.ParseCommand(line)
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := sim.Send(r); err != nil {
				logger.Warn("send execution report", zap.String("cl_ord_id", r.ClOrdID), zap.Error(err))
			}
		}
	}
}
