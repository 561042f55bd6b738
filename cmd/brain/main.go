// Command brain routes completion requests across LLM providers and runs
// tiered research queries against external data sources.
package main

func main() {
	Execute()
}
