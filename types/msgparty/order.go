package msgparty

import (
	"encoding/binary"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

type OrderKind byte

const (
	// LeaveServer is the zero kind, so that the zero Order is the default "leave" instruction.
	LeaveServer OrderKind = iota
	JoinServer
)

// Order tells the local application which destination to navigate to.
type Order struct {
	Kind OrderKind

	// ServerID and Password are only meaningful for JoinServer.
	ServerID string
	Password string
}

func NewJoinServer(serverID, password string) Order {
	return Order{Kind: JoinServer, ServerID: serverID, Password: password}
}

func NewLeaveServer() Order {
	return Order{}
}

func (o Order) Debug() string {
	switch o.Kind {
	case JoinServer:
		return fmt.Sprintf("join server=%s", o.ServerID)
	case LeaveServer:
		return "leave"
	default:
		return fmt.Sprintf("unknown order kind=%d", o.Kind)
	}
}

// orderDoc is the wire view of an Order.
//
// Orders travel as an embedded BSON document, so new order kinds don't change the packet layout.
type orderDoc struct {
	Kind     string `bson:"k"`
	ServerID string `bson:"s,omitempty"`
	Password string `bson:"p,omitempty"`
}

const (
	orderKindJoin  = "join"
	orderKindLeave = "leave"
)

var errBadOrder = errors.New("malformed order document")

func marshalOrder(o Order) ([]byte, error) {
	var doc orderDoc

	switch o.Kind {
	case JoinServer:
		doc = orderDoc{Kind: orderKindJoin, ServerID: o.ServerID, Password: o.Password}
	case LeaveServer:
		doc = orderDoc{Kind: orderKindLeave}
	default:
		return nil, fmt.Errorf("cannot marshal order kind %d", o.Kind)
	}

	return bson.Marshal(doc)
}

func parseOrder(b []byte) (Order, error) {
	// BSON documents self-describe their length; it must match the rest of the packet exactly.
	if len(b) < 5 {
		return Order{}, ErrTooSmall
	}
	if declared := binary.LittleEndian.Uint32(b[:4]); int64(declared) != int64(len(b)) {
		return Order{}, fmt.Errorf("%w: document claims %d bytes, have %d", errBadOrder, declared, len(b))
	}

	var doc orderDoc
	if err := bson.Unmarshal(b, &doc); err != nil {
		return Order{}, fmt.Errorf("%w: %w", errBadOrder, err)
	}

	switch doc.Kind {
	case orderKindJoin:
		return NewJoinServer(doc.ServerID, doc.Password), nil
	case orderKindLeave:
		if doc.ServerID != "" || doc.Password != "" {
			return Order{}, fmt.Errorf("%w: leave order with destination", errBadOrder)
		}
		return NewLeaveServer(), nil
	default:
		return Order{}, fmt.Errorf("%w: unknown kind %q", errBadOrder, doc.Kind)
	}
}
