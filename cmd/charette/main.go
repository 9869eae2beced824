// Command charette is a terminal client for charette sessions.
package main

func main() {
	Execute()
}
