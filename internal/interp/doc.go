// Package interp executes flow graphs against concrete class implementations
// and compares the observable behaviour of two runs.
package interp
