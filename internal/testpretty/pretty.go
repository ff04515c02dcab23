// Package testpretty renders values for test-failure diffs, showing
// byte slices and 32-byte keys as base32 instead of a wall of decimal.
package testpretty

import (
	"reflect"

	"github.com/davidlazar/go-crypto/encoding/base32"
	"github.com/kylelemons/godebug/pretty"
)

func init() {
	pretty.DefaultFormatter[reflect.TypeOf([]byte{})] = func(data []byte) string {
		return "\"" + base32.EncodeToString(data) + "\""
	}
	pretty.DefaultFormatter[reflect.TypeOf([32]byte{})] = func(data [32]byte) string {
		return "\"" + base32.EncodeToString(data[:]) + "\""
	}
}

// Sprint renders v for display in a test failure message.
func Sprint(v interface{}) string {
	return pretty.Sprint(v)
}

// Diff returns a human-readable diff between a and b, or "" if they
// are equal according to the pretty-printer.
func Diff(a, b interface{}) string {
	return pretty.Compare(a, b)
}
