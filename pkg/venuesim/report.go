package venuesim

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	"github.com/quickfixgo/fix44/executionreport"
	"github.com/shopspring/decimal"
)

var ErrBadCommand = errors.New("bad command")

// Report is one execution report to push to the OMS.
type Report struct {
	ClOrdID  string
	ExecType enum.ExecType
	LastQty  decimal.Decimal
	Text     string
	At       time.Time
}

var commandExecTypes = map[string]enum.ExecType{
	"new":    enum.ExecType_NEW,
	"reject": enum.ExecType_REJECTED,
	"fill":   enum.ExecType_TRADE,
	"cancel": enum.ExecType_CANCELED,
	"expire": enum.ExecType_EXPIRED,
}

var ordStatusFor = map[enum.ExecType]enum.OrdStatus{
	enum.ExecType_NEW:      enum.OrdStatus_NEW,
	enum.ExecType_REJECTED: enum.OrdStatus_REJECTED,
	enum.ExecType_TRADE:    enum.OrdStatus_PARTIALLY_FILLED,
	enum.ExecType_CANCELED: enum.OrdStatus_CANCELED,
	enum.ExecType_EXPIRED:  enum.OrdStatus_EXPIRED,
}

// ParseCommand reads "<order-id> <new|reject|fill|cancel|expire> [qty] [text...]".
// fill takes a quantity; the other kinds take free text.
func ParseCommand(line string) (Report, error) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return Report{}, fmt.Errorf("%w: want <order-id> <kind>", ErrBadCommand)
	}

	execType, ok := commandExecTypes[strings.ToLower(parts[1])]
	if !ok {
		return Report{}, fmt.Errorf("%w: unknown kind %q", ErrBadCommand, parts[1])
	}

	r := Report{ClOrdID: parts[0], ExecType: execType}
	rest := parts[2:]
	if execType == enum.ExecType_TRADE {
		if len(rest) == 0 {
			return Report{}, fmt.Errorf("%w: fill needs a quantity", ErrBadCommand)
		}
		qty, err := decimal.NewFromString(rest[0])
		if err != nil || !qty.IsPositive() {
			return Report{}, fmt.Errorf("%w: bad quantity %q", ErrBadCommand, rest[0])
		}
		r.LastQty = qty
		rest = rest[1:]
	}
	r.Text = strings.Join(rest, " ")
	return r, nil
}

func buildExecutionReport(r Report, execID string, cumQty decimal.Decimal) executionreport.ExecutionReport {
	er := executionreport.New(
		field.NewOrderID("V-"+r.ClOrdID),
		field.NewExecID(execID),
		field.NewExecType(r.ExecType),
		field.NewOrdStatus(ordStatusFor[r.ExecType]),
		field.NewSide(enum.Side_BUY),
		field.NewLeavesQty(decimal.Zero, 2),
		field.NewCumQty(cumQty, 2),
		field.NewAvgPx(decimal.Zero, 2),
	)
	er.SetClOrdID(r.ClOrdID)
	er.SetTransactTime(r.At)
	if r.ExecType == enum.ExecType_TRADE {
		er.SetLastQty(r.LastQty, 2)
	}
	if r.Text != "" {
		er.SetText(r.Text)
	}
	return er
}
