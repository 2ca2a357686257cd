package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

type ActionType string

const (
	ActionTypeTransaction ActionType = "TRANSACTION"
	ActionTypeSignable    ActionType = "SIGNABLE"
)

// Action is one step of an ActionPlan. The set of implementations is closed:
// ActionTransaction, ActionSignable and ActionUnknown.
type Action interface {
	Type() ActionType
	isAction()
}

// ActionTransaction is an on-chain transaction the wallet must send.
type ActionTransaction struct {
	Purpose  string
	To       Address
	Data     string
	Value    *big.Int
	GasLimit uint64
}

// ActionSignable is an off-chain EIP-712 signature request.
type ActionSignable struct {
	Purpose string
	Message TypedPayload
}

// ActionUnknown preserves an action whose type this client does not know.
type ActionUnknown struct {
	Kind string
	Raw  json.RawMessage
}

func (ActionTransaction) Type() ActionType { return ActionTypeTransaction }
func (ActionSignable) Type() ActionType    { return ActionTypeSignable }
func (a ActionUnknown) Type() ActionType   { return ActionType(a.Kind) }

func (ActionTransaction) isAction() {}
func (ActionSignable) isAction()    {}
func (ActionUnknown) isAction()     {}

// HasValue reports whether the transaction carries a non-zero value.
func (a ActionTransaction) HasValue() bool {
	return a.Value != nil && a.Value.Sign() > 0
}

// ActionPlan is executed strictly in order.
type ActionPlan []Action

type wireAction struct {
	Type     string        `json:"type"`
	Purpose  string        `json:"purpose,omitempty"`
	To       string        `json:"to,omitempty"`
	Data     string        `json:"data,omitempty"`
	Value    FlexString    `json:"value,omitempty"`
	GasLimit FlexString    `json:"gasLimit,omitempty"`
	Message  *TypedPayload `json:"message,omitempty"`
}

func (p *ActionPlan) UnmarshalJSON(b []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return fmt.Errorf("decode actions: %w", err)
	}
	plan := make(ActionPlan, 0, len(raws))
	for i, raw := range raws {
		a, err := decodeAction(raw)
		if err != nil {
			return fmt.Errorf("decode action %d: %w", i, err)
		}
		plan = append(plan, a)
	}
	*p = plan
	return nil
}

func decodeAction(raw json.RawMessage) (Action, error) {
	var w wireAction
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	switch ActionType(w.Type) {
	case ActionTypeTransaction:
		if w.To == "" {
			return nil, fmt.Errorf("transaction action without 'to'")
		}
		value, err := ParseAmount(string(w.Value))
		if err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}
		gas, err := ParseAmount(string(w.GasLimit))
		if err != nil || !gas.IsUint64() {
			return nil, fmt.Errorf("invalid gasLimit %q", w.GasLimit)
		}
		return ActionTransaction{
			Purpose:  w.Purpose,
			To:       w.To,
			Data:     w.Data,
			Value:    value,
			GasLimit: gas.Uint64(),
		}, nil
	case ActionTypeSignable:
		if w.Message == nil {
			return nil, fmt.Errorf("signable action without message")
		}
		return ActionSignable{Purpose: w.Purpose, Message: *w.Message}, nil
	default:
		return ActionUnknown{Kind: w.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}

func (p ActionPlan) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(p))
	for _, a := range p {
		var (
			b   []byte
			err error
		)
		switch v := a.(type) {
		case ActionTransaction:
			w := wireAction{Type: string(ActionTypeTransaction), Purpose: v.Purpose, To: v.To, Data: v.Data}
			if v.HasValue() {
				w.Value = FlexString(v.Value.String())
			}
			if v.GasLimit > 0 {
				w.GasLimit = FlexString(fmt.Sprint(v.GasLimit))
			}
			b, err = json.Marshal(w)
		case ActionSignable:
			msg := v.Message
			b, err = json.Marshal(wireAction{Type: string(ActionTypeSignable), Purpose: v.Purpose, Message: &msg})
		case ActionUnknown:
			b = v.Raw
		}
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

// TypedPayload is the {domain, types, value} shape the backend returns for
// anything the wallet must sign.
type TypedPayload struct {
	Domain TypedDomain             `json:"domain"`
	Types  map[string][]TypedField `json:"types"`
	Value  map[string]interface{}  `json:"value"`
}

// UnmarshalJSON keeps numbers in value as json.Number so uint256 fields
// above 2^53 survive decoding exactly.
func (p *TypedPayload) UnmarshalJSON(b []byte) error {
	type plain TypedPayload
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out plain
	if err := dec.Decode(&out); err != nil {
		return err
	}
	*p = TypedPayload(out)
	return nil
}

type TypedDomain struct {
	Name              string     `json:"name,omitempty"`
	Version           string     `json:"version,omitempty"`
	ChainID           FlexString `json:"chainId,omitempty"`
	VerifyingContract string     `json:"verifyingContract,omitempty"`
}

type TypedField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
