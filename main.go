package main

import (
	"github.com/crmvault/crmvault/cmd"
)

func main() {
	cmd.Execute()
}
