package fixgateway

import (
	"fmt"

	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
)

var execTypeMapping = map[enum.ExecType]model.EventKind{
	enum.ExecType_NEW:      model.EventAccept,
	enum.ExecType_REJECTED: model.EventReject,
	enum.ExecType_TRADE:    model.EventFill,
	enum.ExecType_CANCELED: model.EventCancel,
	enum.ExecType_EXPIRED:  model.EventExpire,
}

func parseExecutionReport(msg executionreport.ExecutionReport, sessionID quickfix.SessionID) (ExecutionReport, quickfix.MessageRejectError) {
	clOrdID, err := msg.GetClOrdID()
	if err != nil {
		return ExecutionReport{}, err
	}
	execType, err := msg.GetExecType()
	if err != nil {
		return ExecutionReport{}, err
	}

	orderID, _ := msg.GetOrderID()
	execID, _ := msg.GetExecID()
	ordStatus, _ := msg.GetOrdStatus()
	lastQty, _ := msg.GetLastQty()
	cumQty, _ := msg.GetCumQty()
	leavesQty, _ := msg.GetLeavesQty()
	transactTime, _ := msg.GetTransactTime()
	text, _ := msg.GetText()

	return ExecutionReport{
		SessionID:    sessionID,
		ClOrdID:      clOrdID,
		OrderID:      orderID,
		ExecID:       execID,
		ExecType:     execType,
		OrdStatus:    ordStatus,
		LastQty:      lastQty,
		CumQty:       cumQty,
		LeavesQty:    leavesQty,
		TransactTime: transactTime,
		Text:         text,
	}, nil
}

// executionReportToEvent maps a report onto a lifecycle event. ok is false
// for exec types that do not move the order, such as PENDING_NEW or
// ORDER_STATUS.
func executionReportToEvent(er ExecutionReport) (ev model.Event, ok bool, err error) {
	kind, ok := execTypeMapping[er.ExecType]
	if !ok {
		return model.Event{}, false, nil
	}

	ev = model.Event{
		OrderID:   er.ClOrdID,
		Kind:      kind,
		Timestamp: er.TransactTime,
		Reason:    er.Text,
	}
	if kind == model.EventFill {
		if !er.LastQty.IsPositive() {
			return model.Event{}, false, fmt.Errorf("exec %s: trade without LastQty", er.ExecID)
		}
		ev.Quantity = er.LastQty
	}
	if ev.Reason == "" {
		ev.Reason = fmt.Sprintf("venue exec %s", er.ExecID)
	}
	return ev, true, nil
}

// getRoutingKey keeps every report of one order on the same shard.
func getRoutingKey(msg *quickfix.Message, sessionID quickfix.SessionID) string {
	if clOrdID, err := msg.Body.GetString(tag.ClOrdID); err == nil && clOrdID != "" {
		return clOrdID
	}

	if msgType, err := msg.Header.GetString(tag.MsgType); err == nil {
		return "MSGTYPE:" + msgType
	}

	return sessionID.String()
}
