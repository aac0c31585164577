package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/ardanlabs/favorites/business/core/favorites"
	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var getUser string

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the favorites of an account",
	Run:   getRun,
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	getCmd.Flags().StringVarP(&getUser, "user", "s", "", "Account or name to read, defaults to the wallet account.")
}

func getRun(cmd *cobra.Command, args []string) {
	user := getUser
	if user == "" {
		_, accountID, err := loadAccount()
		if err != nil {
			log.Fatal(err)
		}
		user = string(accountID)
	}

	var resp struct {
		User    database.AccountID  `json:"user"`
		Address database.AccountID  `json:"address"`
		Record  favorites.Favorites `json:"favorites"`
	}
	if err := getJSON(fmt.Sprintf("/v1/favorites/%s", user), &resp); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("User:    %s\nAddress: %s\nNumber:  %d\nColor:   %s\nHobbies: %s\n",
		resp.User, resp.Address, resp.Record.Number, resp.Record.Color, strings.Join(resp.Record.Hobbies, ", "))
}
