package cmd

import (
	"log"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	password  string
	exportDir string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the wallet key as a password protected keystore file",
	Run:   exportRun,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&password, "password", "w", "", "Password to encrypt the keystore with.")
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", "./", "Directory to write the keystore file to.")
	exportCmd.MarkFlagRequired("password")
}

func exportRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	key := keystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		PrivateKey: privateKey,
	}

	data, err := keystore.EncryptKey(&key, password, keystore.StandardScryptN, keystore.StandardScryptP)
	if err != nil {
		log.Fatal(err)
	}

	path := filepath.Join(exportDir, key.Address.Hex()+".json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		log.Fatal(err)
	}

	log.Printf("keystore written to %s", path)
}
