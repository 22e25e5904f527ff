// Command shareify sends end-to-end encrypted commands to a Shareify server
// through the bridge and command relay.
package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/shareify/internal/client/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
