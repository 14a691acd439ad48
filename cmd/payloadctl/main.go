// Command payloadctl manages the payload ledger from the command line.
package main

import (
	_ "time/tzdata"

	"github.com/satlaunch/payloadledger/cmd/payloadctl/cmd"
)

func main() {
	cmd.Execute()
}
