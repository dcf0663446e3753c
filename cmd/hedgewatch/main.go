package main

import "hedgewatch/internal/cli"

func main() {
	cli.Execute()
}
