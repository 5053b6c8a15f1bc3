package rules

import (
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// operatorFunc evaluates one comparison. actual is the extracted field value
// and present reports whether the field existed in the context; every operator
// defines its semantics against an absent value and fails closed rather than
// erroring.
type operatorFunc func(actual any, present bool, target any) bool

// operatorTable dispatches condition operators. Rules are data, so the set of
// operators is fixed here rather than behind an extension point.
var operatorTable = map[Operator]operatorFunc{
	OperatorEqual:        evaluateEqual,
	OperatorNotEqual:     evaluateNotEqual,
	OperatorGreaterThan:  evaluateGreaterThan,
	OperatorGreaterEqual: evaluateGreaterEqual,
	OperatorLessThan:     evaluateLessThan,
	OperatorLessEqual:    evaluateLessEqual,
	OperatorIn:           evaluateIn,
	OperatorNotIn:        evaluateNotIn,
	OperatorContains:     evaluateContains,
	OperatorRegex:        evaluateRegex,
}

// evaluateOperator applies op to (actual, target). Unknown operators are a
// load-time validation error; at evaluation time they fail closed.
func evaluateOperator(op Operator, actual any, present bool, target any, logger *slog.Logger) bool {
	fn, ok := operatorTable[op]
	if !ok {
		logger.Warn("unknown condition operator", "operator", string(op))
		return false
	}
	return fn(actual, present, target)
}

// evaluateEqual compares for equality. Numeric values compare numerically so
// that an int in the context matches a float in the rule document. An absent
// field never equals a declared target.
func evaluateEqual(actual any, present bool, target any) bool {
	if !present {
		return false
	}
	if actual == nil && target == nil {
		return true
	}
	if actual == nil || target == nil {
		return false
	}

	actualNum, aok := toFloat64(actual)
	targetNum, tok := toFloat64(target)
	if aok && tok {
		return actualNum == targetNum
	}

	return reflect.DeepEqual(actual, target)
}

func evaluateNotEqual(actual any, present bool, target any) bool {
	return !evaluateEqual(actual, present, target)
}

// Ordering operators coerce both sides numerically and fail closed when
// either side does not cast (the absent-field case included).
func evaluateGreaterThan(actual any, present bool, target any) bool {
	a, b, ok := toNumericPair(actual, present, target)
	return ok && a > b
}

func evaluateGreaterEqual(actual any, present bool, target any) bool {
	a, b, ok := toNumericPair(actual, present, target)
	return ok && a >= b
}

func evaluateLessThan(actual any, present bool, target any) bool {
	a, b, ok := toNumericPair(actual, present, target)
	return ok && a < b
}

func evaluateLessEqual(actual any, present bool, target any) bool {
	a, b, ok := toNumericPair(actual, present, target)
	return ok && a <= b
}

// evaluateIn checks membership of actual in the target list.
func evaluateIn(actual any, present bool, target any) bool {
	if !present {
		return false
	}

	list := reflect.ValueOf(target)
	if !list.IsValid() || (list.Kind() != reflect.Slice && list.Kind() != reflect.Array) {
		return false
	}

	for i := 0; i < list.Len(); i++ {
		if evaluateEqual(actual, true, list.Index(i).Interface()) {
			return true
		}
	}
	return false
}

// evaluateNotIn is membership negation. An absent field is not in any list,
// so the condition holds as long as the target really is a list.
func evaluateNotIn(actual any, present bool, target any) bool {
	list := reflect.ValueOf(target)
	if !list.IsValid() || (list.Kind() != reflect.Slice && list.Kind() != reflect.Array) {
		return false
	}
	if !present {
		return true
	}
	return !evaluateIn(actual, present, target)
}

// evaluateContains checks substring containment over the string forms.
func evaluateContains(actual any, present bool, target any) bool {
	if !present {
		return false
	}
	return strings.Contains(stringify(actual), stringify(target))
}

// evaluateRegex matches the string form of actual against the target pattern.
// A pattern that does not compile fails the condition.
func evaluateRegex(actual any, present bool, target any) bool {
	if !present {
		return false
	}

	pattern, ok := target.(string)
	if !ok {
		return false
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}

	return re.MatchString(stringify(actual))
}

// toNumericPair coerces both operands for an ordering comparison.
func toNumericPair(actual any, present bool, target any) (float64, float64, bool) {
	if !present {
		return 0, 0, false
	}
	a, aok := toFloat64(actual)
	b, bok := toFloat64(target)
	return a, b, aok && bok
}

// toFloat64 converts common scalar representations to float64. Numeric strings
// convert too, matching the loose coercion the rule documents rely on.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
