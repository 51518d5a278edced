package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Field identifies a structured filter in the query language
type Field string

const (
	FieldPlugin  Field = "plugin"
	FieldBPM     Field = "bpm"
	FieldKey     Field = "key"
	FieldMissing Field = "missing"
	FieldTag     Field = "tag"
	FieldSamples Field = "samples"
)

// recognizedFields maps query prefixes to fields; anything else falls back
// to free text
var recognizedFields = map[string]Field{
	"plugin":  FieldPlugin,
	"bpm":     FieldBPM,
	"key":     FieldKey,
	"missing": FieldMissing,
	"tag":     FieldTag,
	"samples": FieldSamples,
	"sample":  FieldSamples,
}

// Filter is one field:value token, typed according to its field
type Filter struct {
	Field  Field
	Text   string  // plugin, key, tag, samples
	Number float64 // bpm
	Bool   bool    // missing
}

// Expr is a parsed query: field filters ANDed with free-text terms
type Expr struct {
	Filters []Filter
	Text    []string
}

// IsEmpty reports whether the query carries no constraints at all
func (e *Expr) IsEmpty() bool {
	return len(e.Filters) == 0 && len(e.Text) == 0
}

// FreeText returns the free-text terms joined back into one string
func (e *Expr) FreeText() string {
	return strings.Join(e.Text, " ")
}

// ParseError identifies the token a query failed on
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid query token %q: %s", e.Token, e.Reason)
}

// Parse tokenizes and parses a query string. Free-text tokens and
// field:value tokens may be mixed freely; double quotes group words into a
// single token ("big pad", plugin:"Pro-Q 3").
func Parse(input string) (*Expr, error) {
	expr := &Expr{}

	for _, tok := range tokenize(input) {
		field, value, ok := splitField(tok)
		if !ok {
			expr.Text = append(expr.Text, tok)
			continue
		}

		f, recognized := recognizedFields[strings.ToLower(field)]
		if !recognized {
			// Unrecognized prefixes are treated as free text, colon and all
			expr.Text = append(expr.Text, tok)
			continue
		}

		filter, err := typedFilter(f, tok, value)
		if err != nil {
			return nil, err
		}
		expr.Filters = append(expr.Filters, filter)
	}

	return expr, nil
}

// typedFilter validates and types the value for a recognized field
func typedFilter(f Field, token, value string) (Filter, error) {
	if value == "" {
		return Filter{}, &ParseError{Token: token, Reason: "missing value"}
	}

	switch f {
	case FieldBPM:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Filter{}, &ParseError{Token: token, Reason: "bpm requires a number"}
		}
		if n <= 0 {
			return Filter{}, &ParseError{Token: token, Reason: "bpm must be positive"}
		}
		return Filter{Field: f, Number: n}, nil
	case FieldMissing:
		switch strings.ToLower(value) {
		case "true", "yes", "1":
			return Filter{Field: f, Bool: true}, nil
		case "false", "no", "0":
			return Filter{Field: f, Bool: false}, nil
		default:
			return Filter{}, &ParseError{Token: token, Reason: "missing requires true or false"}
		}
	default:
		return Filter{Field: f, Text: value}, nil
	}
}

// splitField splits "field:value" tokens; reports false for plain terms
func splitField(tok string) (field, value string, ok bool) {
	i := strings.IndexByte(tok, ':')
	if i <= 0 {
		return "", "", false
	}
	return tok[:i], tok[i+1:], true
}

// tokenize splits on whitespace, keeping double-quoted runs together.
// Quotes may also appear after a field colon: plugin:"Pro-Q 3".
func tokenize(input string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range input {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case !inQuotes && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return tokens
}
