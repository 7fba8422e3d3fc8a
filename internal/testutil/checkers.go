// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package testutil

import (
	"errors"
	"fmt"
	"reflect"

	. "gopkg.in/check.v1"
)

type isTrueChecker struct {
	*CheckerInfo
}

// IsTrue determines whether a boolean value is true.
var IsTrue Checker = &isTrueChecker{
	&CheckerInfo{Name: "IsTrue", Params: []string{"value"}}}

func (checker *isTrueChecker) Check(params []interface{}, names []string) (result bool, error string) {
	value, ok := params[0].(bool)
	if !ok {
		return false, names[0] + " is not a bool"
	}
	return value, ""
}

type isFalseChecker struct {
	*CheckerInfo
}

// IsFalse determines whether a boolean value is false.
var IsFalse Checker = &isFalseChecker{
	&CheckerInfo{Name: "IsFalse", Params: []string{"value"}}}

func (checker *isFalseChecker) Check(params []interface{}, names []string) (result bool, error string) {
	value, ok := params[0].(bool)
	if !ok {
		return false, names[0] + " is not a bool"
	}
	return !value, ""
}

type errorIsChecker struct {
	*CheckerInfo
}

// ErrorIs determines whether any error in a chain has a specific
// value, using errors.Is
//
// For example:
//
//	c.Check(err, ErrorIs, io.EOF)
var ErrorIs Checker = &errorIsChecker{
	&CheckerInfo{Name: "ErrorIs", Params: []string{"value", "expected"}}}

func (checker *errorIsChecker) Check(params []interface{}, names []string) (result bool, errStr string) {
	err, ok := params[0].(error)
	if !ok {
		return false, "value is not an error"
	}

	expected, ok := params[1].(error)
	if !ok {
		return false, "expected is not an error"
	}

	return errors.Is(err, expected), ""
}

type errorAsChecker struct {
	*CheckerInfo
}

// ErrorAs determines whether any error in a chain has a specific
// type, using errors.As.
//
// For example:
//
//	var e *os.PathError
//	c.Check(err, ErrorAs, &e)
//	c.Check(e.Path, Equals, "/foo/bar")
var ErrorAs Checker = &errorAsChecker{
	&CheckerInfo{Name: "ErrorAs", Params: []string{"value", "target"}}}

func (checker *errorAsChecker) Check(params []interface{}, names []string) (result bool, errStr string) {
	err, ok := params[0].(error)
	if !ok {
		return false, "value is not an error"
	}

	return errors.As(err, params[1]), ""
}

type intChecker struct {
	*CheckerInfo
}

func (checker *intChecker) checkSigned(params []interface{}, names []string) (result bool, err string) {
	x := reflect.ValueOf(params[0])
	y := reflect.ValueOf(params[1])

	y64 := y.Convert(reflect.TypeOf(int64(0))).Interface().(int64)
	if y.Kind() == reflect.Uint64 && y64 < 0 {
		return false, names[1] + " overflows an int64"
	}
	if x.OverflowInt(y64) {
		return false, names[1] + " cannot be represented by the type of " + names[0]
	}

	x64 := x.Convert(reflect.TypeOf(int64(0))).Interface().(int64)

	switch checker.Name {
	case "IntEqual":
		return x64 == y64, ""
	case "IntGreater":
		return x64 > y64, ""
	default:
		return false, "unexpected name " + checker.Name
	}
}

func (checker *intChecker) checkUnsigned(params []interface{}, names []string) (result bool, err string) {
	x := reflect.ValueOf(params[0])
	y := reflect.ValueOf(params[1])

	switch y.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if y.Convert(reflect.TypeOf(int64(0))).Interface().(int64) < 0 {
			return false, names[1] + " cannot be negative"
		}
	}

	y64 := y.Convert(reflect.TypeOf(uint64(0))).Interface().(uint64)
	if x.OverflowUint(y64) {
		return false, names[1] + " cannot be represented by the type of " + names[0]
	}

	x64 := x.Convert(reflect.TypeOf(uint64(0))).Interface().(uint64)

	switch checker.Name {
	case "IntEqual":
		return x64 == y64, ""
	case "IntGreater":
		return x64 > y64, ""
	default:
		return false, "unexpected name " + checker.Name
	}
}

func (checker *intChecker) Check(params []interface{}, names []string) (result bool, err string) {
	y := reflect.ValueOf(params[1])
	switch y.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		// good
	default:
		return false, names[1] + " has invalid kind (must be an integer)"
	}

	x := reflect.ValueOf(params[0])
	switch x.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return checker.checkSigned(params, names)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return checker.checkUnsigned(params, names)
	default:
		return false, names[0] + " has invalid kind (must be an integer)"
	}
}

// IntEqual checks that x is equal to y. Both values must be an
// integer kind. They don't have to have the same type, although y
// must be representable by the type of x.
//
// For example:
//
//	c.Check(x, IntEqual, 10)
var IntEqual Checker = &intChecker{
	&CheckerInfo{Name: "IntEqual", Params: []string{"x", "y"}}}

// IntGreater checks that x is greater than y. Both values must be an
// integer kind. They don't have to have the same type, although y
// must be representable by the type of x.
//
// For example:
//
//	c.Check(x, IntGreater, 10)
var IntGreater Checker = &intChecker{
	&CheckerInfo{Name: "IntGreater", Params: []string{"x", "y"}}}

type hasLenChecker struct {
	*CheckerInfo
	cmp Checker
}

func (checker *hasLenChecker) Check(params []interface{}, names []string) (result bool, error string) {
	value := reflect.ValueOf(params[0])
	switch value.Kind() {
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice, reflect.String:
	default:
		return false, "value doesn't have a length"
	}

	result, error = checker.cmp.Check([]interface{}{value.Len(), params[1]}, []string{"len", names[1]})
	if !result && error == "" {
		error = fmt.Sprintf("actual length: %d", value.Len())
	}
	return result, error
}

// LenEquals checks that the value has the specified length. This differs from
// check.HasLen in that it returns an error string containing the actual length
// if the check fails.
//
// For example:
//
//	c.Check(value, LenEquals, 5)
var LenEquals Checker = &hasLenChecker{
	&CheckerInfo{Name: "LenEquals", Params: []string{"value", "n"}}, IntEqual}
