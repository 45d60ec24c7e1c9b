// Package challenge solves the remote service's proof-of-work challenges.
//
// A challenge is free text with embedded decimal numbers; the expected
// response is the product of every maximal run of digits. A challenge with
// no digits has the empty product, 1.
package challenge

import (
	"math/big"
	"regexp"
)

var digitRuns = regexp.MustCompile(`[0-9]+`)

// Solve returns the product of every digit run in s.
func Solve(s string) *big.Int {
	product := big.NewInt(1)
	factor := new(big.Int)
	for _, run := range digitRuns.FindAllString(s, -1) {
		// A run of ASCII digits always parses in base 10.
		factor.SetString(run, 10)
		product.Mul(product, factor)
	}
	return product
}

// SolveString returns Solve(s) in the decimal form sent back to the server.
func SolveString(s string) string {
	return Solve(s).String()
}
