package main

import "github.com/mcoot/skateduel/internal/cli"

func main() {
	cli.Execute()
}
