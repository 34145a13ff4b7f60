package main

import "pcbooking/internal/cli"

func main() {
	cli.Execute()
}
