package main

import "github.com/factoryos/console-sync/internal/cli"

func main() {
	cli.Execute()
}
