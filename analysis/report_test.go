package analysis

import (
	_ "embed"
	"errors"
	"testing"
)

//go:embed testdata/report.json
var reportFixture []byte

const validMatch = `{
	"offset": 0, "length": 1,
	"message": "m", "shortMessage": "s",
	"rule": {"id": "RULE", "category": {"id": "TYPOS"}},
	"replacements": [],
	"context": {"text": "x", "offset": 0, "length": 1}
}`

func TestDecodeReport(t *testing.T) {
	raw, err := DecodeReport(reportFixture)
	if err != nil {
		t.Fatalf("DecodeReport: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("got %d matches, want 2", len(raw))
	}
	for i, body := range raw {
		if _, err := DecodeMatch(body); err != nil {
			t.Errorf("match %d failed to decode: %v", i, err)
		}
	}
}

func TestDecodeReportRejectsBadShapes(t *testing.T) {
	cases := []struct {
		name  string
		input string
		field string // empty means any error is fine
	}{
		{"matches missing", `{}`, "matches"},
		{"matches null", `{"matches": null}`, "matches"},
		{"matches wrong type", `{"matches": 5}`, "matches"},
		{"top level array", `[1,2]`, "(document)"},
		{"not json at all", `Traceback (most recent call last):`, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := DecodeReport([]byte(c.input))
			if err == nil {
				t.Fatal("expected an error")
			}
			if c.field == "" {
				return
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected a FieldError, got %v", err)
			}
			if fe.Field != c.field {
				t.Errorf("field = %q, want %q", fe.Field, c.field)
			}
		})
	}
}

func TestDecodeMatchValid(t *testing.T) {
	m, err := DecodeMatch([]byte(validMatch))
	if err != nil {
		t.Fatalf("DecodeMatch: %v", err)
	}
	if m.RuleID != "RULE" || m.CategoryID != "TYPOS" {
		t.Errorf("rule decoded as %q/%q", m.RuleID, m.CategoryID)
	}
	if m.Context.Text != "x" {
		t.Errorf("context text = %q", m.Context.Text)
	}
}

func TestDecodeMatchFieldErrors(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		field  string
		expect string
	}{
		{
			"offset missing",
			`{"length":1,"message":"m","rule":{"id":"R","category":{"id":"X"}},"context":{"text":"x","offset":0,"length":1}}`,
			"offset", "number",
		},
		{
			"offset mistyped",
			`{"offset":"ten","length":1,"message":"m","rule":{"id":"R","category":{"id":"X"}},"context":{"text":"x","offset":0,"length":1}}`,
			"offset", "number",
		},
		{
			"negative length",
			`{"offset":0,"length":-4,"message":"m","rule":{"id":"R","category":{"id":"X"}},"context":{"text":"x","offset":0,"length":1}}`,
			"length", "non-negative number",
		},
		{
			"category id missing",
			`{"offset":0,"length":1,"message":"m","rule":{"id":"R","category":{}},"context":{"text":"x","offset":0,"length":1}}`,
			"rule.category.id", "string",
		},
		{
			"category id mistyped",
			`{"offset":0,"length":1,"message":"m","rule":{"id":"R","category":{"id":7}},"context":{"text":"x","offset":0,"length":1}}`,
			"rule.category.id", "string",
		},
		{
			"context missing",
			`{"offset":0,"length":1,"message":"m","rule":{"id":"R","category":{"id":"X"}}}`,
			"context", "object",
		},
		{
			"replacement without value",
			`{"offset":0,"length":1,"message":"m","rule":{"id":"R","category":{"id":"X"}},"replacements":[{"shortDescription":"d"}],"context":{"text":"x","offset":0,"length":1}}`,
			"replacements.0.value", "string",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := DecodeMatch([]byte(c.input))
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected a FieldError, got %v", err)
			}
			if fe.Field != c.field {
				t.Errorf("field = %q, want %q", fe.Field, c.field)
			}
			if fe.Expect != c.expect {
				t.Errorf("expect = %q, want %q", fe.Expect, c.expect)
			}
		})
	}
}

func TestDecodeMatchOptionalFields(t *testing.T) {
	// shortMessage and replacements may be absent entirely
	input := `{"offset":0,"length":1,"message":"m","rule":{"id":"R","category":{"id":"X"}},"context":{"text":"x","offset":0,"length":1}}`
	m, err := DecodeMatch([]byte(input))
	if err != nil {
		t.Fatalf("DecodeMatch: %v", err)
	}
	if m.ShortMessage != "" {
		t.Errorf("shortMessage = %q, want empty", m.ShortMessage)
	}
	if len(m.Replacements) != 0 {
		t.Errorf("replacements = %v, want none", m.Replacements)
	}
}
