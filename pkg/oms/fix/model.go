package fixgateway

import (
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
)

// ExecutionReport is the part of a FIX 4.4 ExecutionReport the order
// manager acts on.
type ExecutionReport struct {
	SessionID quickfix.SessionID

	ClOrdID      string
	OrderID      string
	ExecID       string
	ExecType     enum.ExecType
	OrdStatus    enum.OrdStatus
	LastQty      decimal.Decimal
	CumQty       decimal.Decimal
	LeavesQty    decimal.Decimal
	TransactTime time.Time
	Text         string
}
