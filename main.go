package main

import (
	"github.com/dwh-tools/tablepull/cmd"
)

func main() {
	cmd.Execute()
}
