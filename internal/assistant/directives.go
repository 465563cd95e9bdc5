package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// DirectiveMarker prefixes each structured action request in model output.
const DirectiveMarker = "ACTION_CALL:"

// ErrMalformedDirective signals that a directive could not be parsed. The
// orchestrator then abandons the multi-step path and returns the raw model
// text as a plain answer.
var ErrMalformedDirective = errors.New("malformed directive")

// parseDirectives extracts every directive from model output, in textual
// order. The JSON literal after each marker is delimited by scanning for the
// balancing close brace (string- and escape-aware), not by the first '}',
// so nested argument objects survive intact.
func parseDirectives(text string) ([]domain.FunctionCall, error) {
	var calls []domain.FunctionCall

	rest := text
	for {
		idx := strings.Index(rest, DirectiveMarker)
		if idx < 0 {
			break
		}
		rest = rest[idx+len(DirectiveMarker):]

		literal, length, err := balancedJSONObject(rest)
		if err != nil {
			return nil, err
		}

		var call domain.FunctionCall
		if err := json.Unmarshal([]byte(literal), &call); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDirective, err)
		}
		if call.Name == "" {
			return nil, fmt.Errorf("%w: directive has no action name", ErrMalformedDirective)
		}
		if call.Arguments == nil {
			call.Arguments = map[string]interface{}{}
		}

		calls = append(calls, call)
		rest = rest[length:]
	}

	return calls, nil
}

// balancedJSONObject returns the first top-level {...} literal in s and how
// many bytes of s it consumed (up to and including the closing brace).
func balancedJSONObject(s string) (string, int, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", 0, fmt.Errorf("%w: no object literal after marker", ErrMalformedDirective)
	}

	// Nothing but whitespace may sit between the marker and the literal.
	if strings.TrimSpace(s[:start]) != "" {
		return "", 0, fmt.Errorf("%w: unexpected text before object literal", ErrMalformedDirective)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// String contents never affect nesting.
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], i + 1, nil
			}
		}
	}
	return "", 0, fmt.Errorf("%w: unbalanced braces", ErrMalformedDirective)
}
