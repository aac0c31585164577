package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

type account struct {
	Account database.AccountID `json:"account"`
	Name    string             `json:"name"`
	Nonce   uint64             `json:"nonce"`
	Balance uint64             `json:"balance"`
}

type accounts struct {
	LatestBlock string    `json:"latest_block"`
	Accounts    []account `json:"accounts"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance and nonce.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

func balanceRun(cmd *cobra.Command, args []string) {
	_, accountID, err := loadAccount()
	if err != nil {
		log.Fatal(err)
	}

	act, err := queryAccount(accountID)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("For Account:", accountID)
	fmt.Println("Balance:", act.Balance)
	fmt.Println("Nonce:  ", act.Nonce)
}

func queryAccount(accountID database.AccountID) (account, error) {
	var acts accounts
	if err := getJSON(fmt.Sprintf("/v1/accounts/list/%s", accountID), &acts); err != nil {
		return account{}, err
	}

	if len(acts.Accounts) == 0 {
		return account{}, fmt.Errorf("account %s not found", accountID)
	}

	return acts.Accounts[0], nil
}
