// Command ktweb mirrors, parses and serves ktweb meeting minutes.
package main

import (
	_ "time/tzdata"

	"github.com/JakeFAU/ktweb-minutes/cmd"
)

func main() {
	cmd.Execute()
}
