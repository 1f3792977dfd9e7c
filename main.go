package main

import "github.com/jesspatton/lazyexplorer/cli"

// main is the entry point of the application.
func main() {
	cli.Execute()
}
