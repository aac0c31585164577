package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/ardanlabs/favorites/business/core/favorites"
	"github.com/ardanlabs/favorites/foundation/blockchain/genesis"
	"github.com/spf13/cobra"
)

var (
	number  uint64
	color   string
	hobbies []string
	nonce   uint64
	chainID uint16
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Set your favorites",
	Run:   setRun,
}

func init() {
	rootCmd.AddCommand(setCmd)
	setCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	setCmd.Flags().Uint64VarP(&number, "number", "n", 0, "Favorite number.")
	setCmd.Flags().StringVarP(&color, "color", "c", "", "Favorite color.")
	setCmd.Flags().StringArrayVarP(&hobbies, "hobby", "b", nil, "Hobby, can be repeated.")
	setCmd.Flags().Uint64VarP(&nonce, "nonce", "i", 0, "Nonce for the transaction, the next nonce is looked up when 0.")
	setCmd.Flags().Uint16Var(&chainID, "chain-id", 0, "Chain id, looked up from the node when 0.")
}

func setRun(cmd *cobra.Command, args []string) {
	privateKey, accountID, err := loadAccount()
	if err != nil {
		log.Fatal(err)
	}

	if chainID == 0 {
		var gen genesis.Genesis
		if err := getJSON("/v1/genesis/list", &gen); err != nil {
			log.Fatal(err)
		}
		chainID = gen.ChainID
	}

	if nonce == 0 {
		act, err := queryAccount(accountID)
		if err != nil {
			log.Fatal(err)
		}
		nonce = act.Nonce + 1
	}

	fav := favorites.Favorites{
		Number:  number,
		Color:   color,
		Hobbies: hobbies,
	}

	tx, err := favorites.NewSetFavoritesTx(chainID, nonce, accountID, fav)
	if err != nil {
		log.Fatal(err)
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		log.Fatal(err)
	}

	data, err := json.Marshal(signedTx)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var result struct {
		Logs []string `json:"logs"`
	}
	if err := decodeResponse(resp, &result); err != nil {
		log.Fatal(err)
	}

	fmt.Println(strings.Join(result.Logs, "\n"))
}
