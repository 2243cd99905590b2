package formula

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies the variant of a formula token.
type Kind string

const (
	KindMetric      Kind = "metric"
	KindOperator    Kind = "operator"
	KindFunction    Kind = "function"
	KindNumber      Kind = "number"
	KindParenthesis Kind = "parenthesis"
)

// Token is one element of a flat formula sequence. The model is
// deliberately not an AST: the product only needs display and structural
// validation, so operator precedence is never interpreted here.
type Token interface {
	Kind() Kind
	ID() string
	// Value is the raw token text: the field key for a metric, the symbol
	// for an operator or parenthesis, the literal text otherwise.
	Value() string
	// Label is the display text rendered in the builder UI.
	Label() string
}

// Metric references a schema field by key.
type Metric struct {
	TokenID  string
	FieldKey string
	Display  string
}

func (t Metric) Kind() Kind    { return KindMetric }
func (t Metric) ID() string    { return t.TokenID }
func (t Metric) Value() string { return t.FieldKey }
func (t Metric) Label() string { return t.Display }

// Operator is a binary operator symbol such as "+" or "/".
type Operator struct {
	TokenID string
	Symbol  string
}

func (t Operator) Kind() Kind    { return KindOperator }
func (t Operator) ID() string    { return t.TokenID }
func (t Operator) Value() string { return t.Symbol }
func (t Operator) Label() string { return t.Symbol }

// FunctionCall is a named function reference such as "SUM" or "AVG".
type FunctionCall struct {
	TokenID string
	Name    string
}

func (t FunctionCall) Kind() Kind    { return KindFunction }
func (t FunctionCall) ID() string    { return t.TokenID }
func (t FunctionCall) Value() string { return t.Name }
func (t FunctionCall) Label() string { return t.Name }

// NumberLiteral is a numeric literal kept as its original text.
type NumberLiteral struct {
	TokenID string
	Text    string
}

func (t NumberLiteral) Kind() Kind    { return KindNumber }
func (t NumberLiteral) ID() string    { return t.TokenID }
func (t NumberLiteral) Value() string { return t.Text }
func (t NumberLiteral) Label() string { return t.Text }

// Parenthesis is "(" or ")".
type Parenthesis struct {
	TokenID string
	Symbol  string
}

func (t Parenthesis) Kind() Kind    { return KindParenthesis }
func (t Parenthesis) ID() string    { return t.TokenID }
func (t Parenthesis) Value() string { return t.Symbol }
func (t Parenthesis) Label() string { return t.Symbol }

// Constructors assign fresh token ids so Remove can address individual
// tokens even when the same symbol appears multiple times.

func NewMetric(fieldKey, label string) Metric {
	return Metric{TokenID: uuid.NewString(), FieldKey: fieldKey, Display: label}
}

func NewOperator(symbol string) Operator {
	return Operator{TokenID: uuid.NewString(), Symbol: symbol}
}

func NewFunctionCall(name string) FunctionCall {
	return FunctionCall{TokenID: uuid.NewString(), Name: name}
}

func NewNumberLiteral(text string) NumberLiteral {
	return NumberLiteral{TokenID: uuid.NewString(), Text: text}
}

func NewParenthesis(symbol string) Parenthesis {
	return Parenthesis{TokenID: uuid.NewString(), Symbol: symbol}
}

// Tokens is an ordered formula sequence. It serializes to a flat JSON
// array of tagged envelopes and can be stored in a text column.
type Tokens []Token

// envelope is the persisted form of a token.
type envelope struct {
	ID    string `json:"id"`
	Type  Kind   `json:"type"`
	Value string `json:"value"`
	Label string `json:"label"`
}

func (ts Tokens) MarshalJSON() ([]byte, error) {
	envs := make([]envelope, len(ts))
	for i, t := range ts {
		envs[i] = envelope{ID: t.ID(), Type: t.Kind(), Value: t.Value(), Label: t.Label()}
	}
	return json.Marshal(envs)
}

func (ts *Tokens) UnmarshalJSON(data []byte) error {
	var envs []envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return err
	}
	out := make(Tokens, 0, len(envs))
	for _, e := range envs {
		switch e.Type {
		case KindMetric:
			out = append(out, Metric{TokenID: e.ID, FieldKey: e.Value, Display: e.Label})
		case KindOperator:
			out = append(out, Operator{TokenID: e.ID, Symbol: e.Value})
		case KindFunction:
			out = append(out, FunctionCall{TokenID: e.ID, Name: e.Value})
		case KindNumber:
			out = append(out, NumberLiteral{TokenID: e.ID, Text: e.Value})
		case KindParenthesis:
			out = append(out, Parenthesis{TokenID: e.ID, Symbol: e.Value})
		default:
			return fmt.Errorf("unknown formula token type %q", e.Type)
		}
	}
	*ts = out
	return nil
}

// Value implements driver.Valuer so a formula can live in a text column.
func (ts Tokens) Value() (driver.Value, error) {
	if len(ts) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(ts)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (ts *Tokens) Scan(src interface{}) error {
	if src == nil {
		*ts = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return ts.UnmarshalJSON(v)
	case string:
		return ts.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into formula.Tokens", src)
	}
}

// String renders the sequence for display: metrics as "[Label]", every
// other token as its raw value, joined by single spaces.
func (ts Tokens) String() string {
	out := ""
	for i, t := range ts {
		if i > 0 {
			out += " "
		}
		if t.Kind() == KindMetric {
			out += "[" + t.Label() + "]"
		} else {
			out += t.Value()
		}
	}
	return out
}
