// Package main provides the ytcollect command.
//
// ytcollect walks the most-popular chart of every configured video category,
// records the channels behind it and keeps the result as timestamped
// snapshots.
//
// Usage:
//
//	ytcollect run
//	ytcollect snapshot --top 20
//
// See --help for all available options.
package main

func main() {
	Execute()
}
