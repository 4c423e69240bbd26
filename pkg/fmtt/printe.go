// Package fmtt extends fmt with error diagnostics for the command line
// tools. The helpers render wrapped error chains layer by layer so a
// failed run can be traced back to the operation that produced it.
package fmtt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/davecgh/go-spew/spew"
)

// FprintErrChain writes each layer of an error chain with its concrete type.
func FprintErrChain(w io.Writer, err error) {
	if err == nil {
		fmt.Fprintln(w, "<nil>")
		return
	}

	i := 0
	for e := err; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(w, "[%d] %T: %v\n", i, e, e)
		i++
	}
}

// PrintErrChain is FprintErrChain to standard error.
func PrintErrChain(err error) {
	FprintErrChain(os.Stderr, err)
}

// FdumpErrChain writes a deep dump of every layer: the message, a spew
// rendering, and any exported struct fields. Useful when an error type
// carries state its Error() string does not show.
func FdumpErrChain(w io.Writer, err error) {
	for i := 0; err != nil; err = errors.Unwrap(err) {
		fmt.Fprintf(w, "[%d] %T: %v\n", i, err, err)
		spew.Fdump(w, err)

		rv := reflect.ValueOf(err)
		rt := reflect.TypeOf(err)
		if rt.Kind() == reflect.Ptr {
			rv = rv.Elem()
			rt = rt.Elem()
		}
		if rt.Kind() == reflect.Struct {
			for j := 0; j < rt.NumField(); j++ {
				f := rt.Field(j)
				v := rv.Field(j)
				if v.CanInterface() {
					fmt.Fprintf(w, "   %s (%s): %+v\n", f.Name, f.Type, v.Interface())
				}
			}
		}
		i++
	}
}
