// Package main provides the phonecart binary: the storefront cart client
// for the phone retailer API, covering the guest cart, the authenticated
// cart and the login-time merge between the two.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
