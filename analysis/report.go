package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"tex-lsp/lsp"
)

// FieldError reports a checker payload whose JSON shape doesn't line up
// with the schema we expect. Field is the dotted path to the offending
// value, Expect is what the schema wanted there.
type FieldError struct {
	Field  string
	Expect string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: expected %s", e.Field, e.Expect)
}

// Match is one checker finding, validated into plain fields. Offsets and
// lengths count characters in the checked document; the context offsets
// count characters within the excerpt.
type Match struct {
	Offset       int
	Length       int
	Message      string
	ShortMessage string
	RuleID       string
	CategoryID   string
	Replacements []lsp.Replacement
	Context      MatchContext
}

// MatchContext is a local excerpt around a finding plus the sub-span of
// interest inside it.
type MatchContext struct {
	Text   string
	Offset int
	Length int
}

// Required fields decode through pointers so a missing value is
// distinguishable from a zero one and can be rejected by name.
type matchJSON struct {
	Offset       *int              `json:"offset"`
	Length       *int              `json:"length"`
	Message      *string           `json:"message"`
	ShortMessage *string           `json:"shortMessage"`
	Rule         *ruleJSON         `json:"rule"`
	Replacements []replacementJSON `json:"replacements"`
	Context      *contextJSON      `json:"context"`
}

type ruleJSON struct {
	ID       *string       `json:"id"`
	Category *categoryJSON `json:"category"`
}

type categoryJSON struct {
	ID *string `json:"id"`
}

type replacementJSON struct {
	Value            *string `json:"value"`
	ShortDescription string  `json:"shortDescription"`
}

type contextJSON struct {
	Text   *string `json:"text"`
	Offset *int    `json:"offset"`
	Length *int    `json:"length"`
}

type reportJSON struct {
	Matches *[]json.RawMessage `json:"matches"`
}

// DecodeReport parses the checker's stdout into raw match bodies. The
// matches stay undecoded here so one malformed entry cannot take the
// whole run down; DecodeMatch handles them one at a time.
func DecodeReport(data []byte) ([]json.RawMessage, error) {
	var r reportJSON
	if err := json.Unmarshal(data, &r); err != nil {
		if fe := asFieldError(err); fe != nil {
			return nil, fe
		}
		return nil, fmt.Errorf("decoding checker output: %w", err)
	}
	if r.Matches == nil {
		return nil, &FieldError{Field: "matches", Expect: "array"}
	}
	return *r.Matches, nil
}

// DecodeMatch parses and validates a single match body.
func DecodeMatch(data []byte) (*Match, error) {
	var m matchJSON
	if err := json.Unmarshal(data, &m); err != nil {
		if fe := asFieldError(err); fe != nil {
			return nil, fe
		}
		return nil, fmt.Errorf("decoding match: %w", err)
	}

	if m.Offset == nil {
		return nil, &FieldError{Field: "offset", Expect: "number"}
	}
	if m.Length == nil {
		return nil, &FieldError{Field: "length", Expect: "number"}
	}
	if *m.Length < 0 {
		return nil, &FieldError{Field: "length", Expect: "non-negative number"}
	}
	if m.Message == nil {
		return nil, &FieldError{Field: "message", Expect: "string"}
	}
	if m.Rule == nil {
		return nil, &FieldError{Field: "rule", Expect: "object"}
	}
	if m.Rule.ID == nil {
		return nil, &FieldError{Field: "rule.id", Expect: "string"}
	}
	if m.Rule.Category == nil {
		return nil, &FieldError{Field: "rule.category", Expect: "object"}
	}
	if m.Rule.Category.ID == nil {
		return nil, &FieldError{Field: "rule.category.id", Expect: "string"}
	}
	if m.Context == nil {
		return nil, &FieldError{Field: "context", Expect: "object"}
	}
	if m.Context.Text == nil {
		return nil, &FieldError{Field: "context.text", Expect: "string"}
	}
	if m.Context.Offset == nil {
		return nil, &FieldError{Field: "context.offset", Expect: "number"}
	}
	if m.Context.Length == nil {
		return nil, &FieldError{Field: "context.length", Expect: "number"}
	}

	out := &Match{
		Offset:     *m.Offset,
		Length:     *m.Length,
		Message:    *m.Message,
		RuleID:     *m.Rule.ID,
		CategoryID: *m.Rule.Category.ID,
		Context: MatchContext{
			Text:   *m.Context.Text,
			Offset: *m.Context.Offset,
			Length: *m.Context.Length,
		},
	}
	if m.ShortMessage != nil {
		out.ShortMessage = *m.ShortMessage
	}
	for i, r := range m.Replacements {
		if r.Value == nil {
			return nil, &FieldError{Field: fmt.Sprintf("replacements.%d.value", i), Expect: "string"}
		}
		out.Replacements = append(out.Replacements, lsp.Replacement{
			Value:            *r.Value,
			ShortDescription: r.ShortDescription,
		})
	}
	return out, nil
}

// asFieldError translates the stdlib's type-mismatch error into our
// schema error so callers see a dotted field path either way.
func asFieldError(err error) *FieldError {
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) {
		return nil
	}
	field := typeErr.Field
	if field == "" {
		field = "(document)"
	}
	return &FieldError{Field: field, Expect: expectName(typeErr.Type)}
}

func expectName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Bool:
		return "boolean"
	default:
		return t.String()
	}
}
