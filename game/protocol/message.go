// Package protocol defines the JSON messages exchanged with grid clients.
//
// Every frame is a JSON object with a "type" discriminator. The set of kinds
// is closed: init (server to client), update and reset (both directions).
// Parse validates a frame once at the boundary and returns one of the typed
// variants; anything else is reported as ErrMalformed or ErrUnknownType so
// callers can drop it.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/buger/jsonparser"
	"github.com/wricardo/mcp-training/gridshare/game/grid"
)

// Kind is the value of a message's "type" field.
type Kind string

const (
	KindInit   Kind = "init"
	KindUpdate Kind = "update"
	KindReset  Kind = "reset"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// Message is implemented by Init, Update and Reset only.
type Message interface {
	Kind() Kind
	isMessage()
}

// Init carries a full grid snapshot to a newly joined client.
type Init struct {
	State []grid.Cell
}

// Update sets a single cell.
type Update struct {
	Index int
	Value grid.Cell
}

// Reset clears the whole grid.
type Reset struct{}

func (Init) Kind() Kind   { return KindInit }
func (Update) Kind() Kind { return KindUpdate }
func (Reset) Kind() Kind  { return KindReset }

func (Init) isMessage()   {}
func (Update) isMessage() {}
func (Reset) isMessage()  {}

// MarshalJSON emits {"type":"init","state":[...]}.
func (m Init) MarshalJSON() ([]byte, error) {
	state := m.State
	if state == nil {
		state = []grid.Cell{}
	}
	return json.Marshal(struct {
		Type  Kind        `json:"type"`
		State []grid.Cell `json:"state"`
	}{KindInit, state})
}

// MarshalJSON emits {"type":"update","index":i,"value":v}.
func (m Update) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  Kind      `json:"type"`
		Index int       `json:"index"`
		Value grid.Cell `json:"value"`
	}{KindUpdate, m.Index, m.Value})
}

// MarshalJSON emits {"type":"reset"}.
func (Reset) MarshalJSON() ([]byte, error) {
	return []byte(`{"type":"reset"}`), nil
}

// Encode serializes a message into a text frame payload.
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil message", ErrMalformed)
	}
	return json.Marshal(m)
}

// Parse decodes and validates a single frame.
func Parse(raw []byte) (Message, error) {
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}

	typ, err := jsonparser.GetString(raw, "type")
	if err != nil {
		return nil, fmt.Errorf("%w: type: %v", ErrMalformed, err)
	}

	switch Kind(typ) {
	case KindUpdate:
		index, err := getInt(raw, "index")
		if err != nil {
			return nil, err
		}
		value, err := getInt(raw, "value")
		if err != nil {
			return nil, err
		}
		return Update{Index: index, Value: grid.Cell(value)}, nil

	case KindReset:
		return Reset{}, nil

	case KindInit:
		state := []grid.Cell{}
		var itemErr error
		_, err := jsonparser.ArrayEach(raw, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
			if itemErr != nil {
				return
			}
			if dataType != jsonparser.Number {
				itemErr = fmt.Errorf("%w: state entry is %s", ErrMalformed, dataType)
				return
			}
			n, err := jsonparser.ParseInt(value)
			if err != nil {
				itemErr = fmt.Errorf("%w: state entry: %v", ErrMalformed, err)
				return
			}
			state = append(state, grid.Cell(n))
		}, "state")
		if err != nil {
			return nil, fmt.Errorf("%w: state: %v", ErrMalformed, err)
		}
		if itemErr != nil {
			return nil, itemErr
		}
		return Init{State: state}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}

// getInt reads an integral JSON number; fractions, strings, null and
// anything outside the int32 range are rejected.
func getInt(raw []byte, key string) (int, error) {
	n, err := jsonparser.GetInt(raw, key)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s out of range", ErrMalformed, key)
	}
	return int(n), nil
}
