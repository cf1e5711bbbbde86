package main

import "github.com/drivesound/drivesound/internal/cli"

func main() {
	cli.Execute()
}
