package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/pagegrep/pagegrep/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(os.Stderr, "Run 'pagegrep --help' for usage.")
			os.Exit(2)
		}
		os.Exit(1)
	}
}
