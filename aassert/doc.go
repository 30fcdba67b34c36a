// Package aassert has assertions going beyond stretchr/testify/assert,
// following its design: each assertion takes a *testing.T,
// returns whether it passed, and accepts optional msgAndArgs.
package aassert
