package main

import (
	"token-price-watcher/internal/cli"
)

func main() {
	cli.Execute()
}
