// Package main provides the orgscope CLI.
//
// orgscope scrapes company profiles from an authenticated browser session,
// stores them, and serves them over an HTTP API.
//
// Usage:
//
//	orgscope login
//	orgscope serve
//	orgscope scrape https://www.linkedin.com/company/<slug>/
//	orgscope query --min-followers 1000
//
// See --help for all available options.
package main

func main() {
	Execute()
}
