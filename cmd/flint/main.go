package main

import "github.com/flint-py/flint/internal/cli"

func main() {
	cli.Execute()
}
