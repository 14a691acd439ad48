package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-bexpr"
	lru "github.com/hashicorp/golang-lru/v2"

	apperrors "github.com/satlaunch/payloadledger/internal/errors"
)

// ErrIteratorExhausted is returned by Next after the last element.
var ErrIteratorExhausted = errors.New("iterator exhausted")

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// evaluatorCacheSize bounds the compiled evaluators kept. Launcher scopes embed
// the subject, so the expression set grows with the number of launchers.
const evaluatorCacheSize = 512

// evaluatorCache stores compiled go-bexpr evaluators keyed by expression.
var evaluatorCache = mustCache(evaluatorCacheSize)

func mustCache(size int) *lru.Cache[string, *bexpr.Evaluator] {
	cache, err := lru.New[string, *bexpr.Evaluator](size)
	if err != nil {
		panic(fmt.Sprintf("create evaluator cache: %v", err))
	}
	return cache
}

// Condition constrains one field of a record. A literal is a one-element set.
type Condition struct {
	values  []any
	literal bool
}

// Equals matches records whose field equals v.
func Equals(v any) Condition {
	return Condition{values: []any{v}, literal: true}
}

// OneOf matches records whose field equals any of vs. An empty set matches nothing.
func OneOf(vs ...any) Condition {
	return Condition{values: append([]any(nil), vs...)}
}

// Selector is a declarative record filter of the form
//
//	{"selector": {field: literal | {"$in": [literals...]}}}
//
// Clauses are conjunctive. An empty selector matches every record.
type Selector map[string]Condition

// MatchAll returns the empty selector.
func MatchAll() Selector {
	return Selector{}
}

// ParseSelector decodes a selector document. Literals compare by JSON type:
// null only matches null, and numbers match numbers by value (1 == 1.0) but
// never the string "1".
func ParseSelector(raw []byte) (Selector, error) {
	var doc struct {
		Selector map[string]json.RawMessage `json:"selector"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, apperrors.Validation("selector is not valid JSON: %v", err)
	}

	sel := Selector{}
	for field, rawCond := range doc.Selector {
		if !fieldNamePattern.MatchString(field) {
			return nil, apperrors.Validation("selector field %q is not a plain field name", field)
		}
		cond, err := parseCondition(field, rawCond)
		if err != nil {
			return nil, err
		}
		sel[field] = cond
	}
	return sel, nil
}

func parseCondition(field string, raw json.RawMessage) (Condition, error) {
	v, err := decodeValue(raw)
	if err != nil {
		return Condition{}, apperrors.Validation("selector field %q: %v", field, err)
	}

	switch typed := v.(type) {
	case map[string]any:
		in, ok := typed["$in"]
		if !ok || len(typed) != 1 {
			return Condition{}, apperrors.Validation("selector field %q: only $in is supported", field)
		}
		list, ok := in.([]any)
		if !ok {
			return Condition{}, apperrors.Validation("selector field %q: $in expects an array", field)
		}
		for _, item := range list {
			if !isScalar(item) {
				return Condition{}, apperrors.Validation("selector field %q: $in accepts literals only", field)
			}
		}
		return OneOf(list...), nil
	case []any:
		return Condition{}, apperrors.Validation("selector field %q: arrays are not literals", field)
	default:
		return Equals(typed), nil
	}
}

func decodeValue(raw []byte) (any, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, json.Number, bool, nil, int, int64, float64:
		return true
	default:
		return false
	}
}

// MarshalJSON encodes the selector in its document form.
func (s Selector) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(s))
	for field, cond := range s {
		if cond.literal && len(cond.values) == 1 {
			body[field] = cond.values[0]
			continue
		}
		values := cond.values
		if values == nil {
			values = []any{}
		}
		body[field] = map[string]any{"$in": values}
	}
	return json.Marshal(map[string]any{"selector": body})
}

// String returns the JSON document form, suitable for a rich query.
func (s Selector) String() string {
	data, err := s.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid selector: %v>", err)
	}
	return string(data)
}

// Expression compiles the selector into a go-bexpr expression. matchable is false
// when some clause has an empty $in set and therefore nothing can match.
func (s Selector) Expression() (expr string, matchable bool) {
	fields := make([]string, 0, len(s))
	for field := range s {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	clauses := make([]string, 0, len(fields))
	for _, field := range fields {
		cond := s[field]
		if len(cond.values) == 0 {
			return "", false
		}
		alternatives := make([]string, 0, len(cond.values))
		for _, v := range cond.values {
			alternatives = append(alternatives, fmt.Sprintf("%s == %s", field, strconv.Quote(typedString(v))))
		}
		if len(alternatives) == 1 {
			clauses = append(clauses, alternatives[0])
		} else {
			clauses = append(clauses, "("+strings.Join(alternatives, " or ")+")")
		}
	}
	return strings.Join(clauses, " and "), true
}

// Match reports whether the JSON document doc satisfies the selector.
// Documents that are not JSON objects only match the empty selector.
func (s Selector) Match(doc []byte) (bool, error) {
	if len(s) == 0 {
		return true, nil
	}
	expr, matchable := s.Expression()
	if !matchable {
		return false, nil
	}

	fields, err := flatten(doc)
	if err != nil {
		return false, err
	}
	for field := range s {
		if _, ok := fields[field]; !ok {
			return false, nil
		}
	}

	evaluator, err := compile(expr)
	if err != nil {
		return false, err
	}
	return evaluator.Evaluate(fields)
}

func compile(expr string) (*bexpr.Evaluator, error) {
	if cached, ok := evaluatorCache.Get(expr); ok {
		return cached, nil
	}
	evaluator, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", expr, err)
	}
	evaluatorCache.Add(expr, evaluator)
	return evaluator, nil
}

// flatten decodes a JSON object into its top-level scalar fields, rendered
// with typedString.
func flatten(doc []byte) (map[string]string, error) {
	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("record is not a JSON object: %w", err)
	}

	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		if isScalar(v) {
			fields[k] = typedString(v)
		}
	}
	return fields, nil
}

// typedString renders a scalar prefixed with its JSON type so that bexpr string
// equality never matches values of different types.
func typedString(v any) string {
	switch typed := v.(type) {
	case nil:
		return "z:"
	case string:
		return "s:" + typed
	case bool:
		return "b:" + strconv.FormatBool(typed)
	case json.Number:
		return "n:" + canonicalNumber(typed.String())
	case int:
		return "n:" + canonicalNumber(strconv.Itoa(typed))
	case int64:
		return "n:" + canonicalNumber(strconv.FormatInt(typed, 10))
	case float64:
		return "n:" + canonicalNumber(strconv.FormatFloat(typed, 'g', -1, 64))
	default:
		return "s:" + fmt.Sprint(typed)
	}
}

func canonicalNumber(raw string) string {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
