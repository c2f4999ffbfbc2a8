package main

import "github.com/forPelevin/hlfinish/internal/cli"

func main() {
	cli.Main()
}
