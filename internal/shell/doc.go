// Package shell implements the line-oriented command surface of roomctl.
//
// A Dispatcher parses one command line, calls the matching application service
// and prints the result. Run wraps a Dispatcher in a read-eval-print loop:
//
//	d := shell.NewDispatcher(services, shell.Options{Out: os.Stdout})
//	err := d.Run(ctx, os.Stdin)
//
// Handled errors are printed and never stop the loop.
package shell
