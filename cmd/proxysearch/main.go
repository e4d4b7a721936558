// Command proxysearch reports the proxies the local configuration selects
// for a URL and can run local front ends that apply that selection.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "proxysearch:", err)
		os.Exit(1)
	}
}
