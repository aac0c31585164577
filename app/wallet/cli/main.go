// This program provides a wallet for signing and submitting favorites
// transactions to a node.
package main

import "github.com/ardanlabs/favorites/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
