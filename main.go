package main

import (
	"matching-backend/cmd"

	_ "go.uber.org/automaxprocs"
)

func main() {
	cmd.Run()
}
