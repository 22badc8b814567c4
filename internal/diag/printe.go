// Package diag prints fatal-error diagnostics to stderr, keeping them
// disjoint from the protocol lines the supervisor writes to stdout.
package diag

import (
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/davecgh/go-spew/spew"
)

// PrintErrChain walks an error chain and prints each layer with its type,
// to stderr.
func PrintErrChain(err error) {
	if err == nil {
		fmt.Fprintln(os.Stderr, "<nil>")
		return
	}

	i := 0
	for e := err; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(os.Stderr, "[%d] %T: %v\n", i, e, e)
		i++
	}
}

// PrintErrChainDebug is the verbose variant: a spew.Dump plus a reflected
// field listing for every layer of the chain, for conditions unusual
// enough to warrant it.
func PrintErrChainDebug(err error) {
	for i := 0; err != nil; err = errors.Unwrap(err) {
		fmt.Fprintf(os.Stderr, "[%d] %T\n", i, err)
		fmt.Fprintf(os.Stderr, "   Error(): %v\n", err)

		spew.Fdump(os.Stderr, err)

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
					fmt.Fprintf(os.Stderr, "   Field %s (%s): %+v\n", f.Name, f.Type, v.Interface())
				}
			}
		}

		if u, ok := err.(interface{ Unwrap() error }); ok {
			fmt.Fprintf(os.Stderr, "   Has Unwrap(): %T\n", u.Unwrap())
		}
		if c, ok := err.(interface{ Cause() error }); ok {
			fmt.Fprintf(os.Stderr, "   Has Cause(): %T\n", c.Cause())
		}

		i++
	}
}
