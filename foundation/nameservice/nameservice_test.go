package nameservice_test

import (
	"path/filepath"
	"testing"

	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/ardanlabs/favorites/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_NameService(t *testing.T) {
	root := t.TempDir()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a key: %v", failed, err)
	}
	if err := crypto.SaveECDSA(filepath.Join(root, "pavel.ecdsa"), key); err != nil {
		t.Fatalf("\t%s\tShould be able to save the key: %v", failed, err)
	}
	accountID := database.PublicKeyToAccountID(key.PublicKey)

	t.Log("Given the need to name accounts from their key files.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen loading a folder with one key.", testID)
		{
			ns, err := nameservice.New(root)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the folder: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to load the folder.", success, testID)

			if name := ns.Lookup(accountID); name != "pavel" {
				t.Fatalf("\t%s\tTest %d:\tShould name the account pavel, got %s.", failed, testID, name)
			}
			t.Logf("\t%s\tTest %d:\tShould name the account pavel.", success, testID)

			if got, err := ns.Resolve("pavel"); err != nil || got != accountID {
				t.Fatalf("\t%s\tTest %d:\tShould resolve pavel to %s: %s, %v", failed, testID, accountID, got, err)
			}
			t.Logf("\t%s\tTest %d:\tShould resolve pavel to the account.", success, testID)

			if _, err := ns.Resolve("bill"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould not resolve an unknown name.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not resolve an unknown name.", success, testID)
		}
	}
}
