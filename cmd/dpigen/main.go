package main

import (
	"dpigen/cmd/dpigen/cmd"
)

func main() {
	cmd.Execute()
}
