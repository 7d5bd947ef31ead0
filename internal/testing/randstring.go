// Package testing holds helpers shared by package tests.
package testing

import (
	"math/rand"
	"strings"
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandString generates random string with 10 symbols length from lower- and uppercase alphabet
func RandString() string {
	return RandStringN(10)
}

// RandStringN generates random letters-only string of length n
func RandStringN(n int) string {
	var out strings.Builder
	out.Grow(n)
	for i := 0; i < n; i++ {
		out.WriteByte(letters[rand.Intn(len(letters))])
	}
	return out.String()
}

// RandEmail returns a unique looking lowercase email address
func RandEmail() string {
	return strings.ToLower(RandString()) + "@example.com"
}
