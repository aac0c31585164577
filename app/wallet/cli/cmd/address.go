package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/favorites/business/core/favorites"
	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var addressUser string

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address the favorites of an account are stored at",
	Run:   addressRun,
}

func init() {
	rootCmd.AddCommand(addressCmd)
	addressCmd.Flags().StringVarP(&addressUser, "user", "s", "", "Account to derive the address for, defaults to the wallet account.")
}

func addressRun(cmd *cobra.Command, args []string) {
	user := database.AccountID(addressUser)
	if user == "" {
		var err error
		if _, user, err = loadAccount(); err != nil {
			log.Fatal(err)
		}
	}

	address, bump, err := favorites.Address(user)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Program: %s\nUser:    %s\nAddress: %s\nBump:    %d\nSpace:   %d\n", favorites.ProgramID, user, address, bump, favorites.Space)
}
