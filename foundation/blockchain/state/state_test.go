package state_test

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/ardanlabs/favorites/business/core/favorites"
	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/ardanlabs/favorites/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/favorites/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/favorites/foundation/blockchain/genesis"
	"github.com/ardanlabs/favorites/foundation/blockchain/program"
	"github.com/ardanlabs/favorites/foundation/blockchain/state"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

const kennedyECDSA = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

type user struct {
	id  database.AccountID
	key *ecdsa.PrivateKey
}

func newUser(t *testing.T, hexKey string) user {
	var key *ecdsa.PrivateKey
	var err error

	switch hexKey {
	case "":
		key, err = crypto.GenerateKey()
	default:
		key, err = crypto.HexToECDSA(hexKey)
	}
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct a private key: %v", failed, err)
	}

	return user{id: database.PublicKeyToAccountID(key.PublicKey), key: key}
}

func newGenesis(users ...user) genesis.Genesis {
	g := genesis.Genesis{
		ChainID:     1,
		RentPerByte: 10,
		Balances:    make(map[string]uint64),
	}

	for _, u := range users {
		g.Balances[string(u.id)] = 1_000_000
	}

	return g
}

func newState(t *testing.T, g genesis.Genesis, storage database.Storage) *state.State {
	st, err := state.New(state.Config{
		Genesis:  g,
		Storage:  storage,
		Programs: []program.Program{favorites.NewProgram()},
		EvHandler: func(v string, args ...any) {
			t.Logf(v, args...)
		},
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	return st
}

func signFavorites(t *testing.T, u user, chainID uint16, nonce uint64, fav favorites.Favorites) database.SignedTx {
	tx, err := favorites.NewSetFavoritesTx(chainID, nonce, u.id, fav)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the transaction: %v", failed, err)
	}

	return sign(t, u, tx)
}

func sign(t *testing.T, u user, tx database.Tx) database.SignedTx {
	signedTx, err := tx.Sign(u.key)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign the transaction: %v", failed, err)
	}

	return signedTx
}

// rawSetFavorites builds instruction data without the client side bounds
// checks so the program's own checks can be exercised.
func rawSetFavorites(number uint64, color string, hobbies ...string) []byte {
	hash := sha256.Sum256([]byte("global:set_favorites"))

	data := append([]byte{}, hash[:8]...)
	data = binary.LittleEndian.AppendUint64(data, number)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(color)))
	data = append(data, color...)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(hobbies)))
	for _, hobby := range hobbies {
		data = binary.LittleEndian.AppendUint32(data, uint32(len(hobby)))
		data = append(data, hobby...)
	}

	return data
}

// =============================================================================

func Test_SetFavorites(t *testing.T) {
	kennedy := newUser(t, kennedyECDSA)
	g := newGenesis(kennedy)
	st := newState(t, g, memory.New())
	defer st.Shutdown()

	first := favorites.Favorites{Number: 42, Color: "blue", Hobbies: []string{"chess", "reading"}}
	second := favorites.Favorites{Number: 7, Color: "red", Hobbies: []string{}}

	t.Log("Given the need to set and read back favorites.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen setting favorites for the first time.", testID)
		{
			tx, err := st.SubmitTransaction(signFavorites(t, kennedy, g.ChainID, 1, first))
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to submit the transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to submit the transaction.", success, testID)

			if len(tx.Logs) == 0 || !strings.Contains(strings.Join(tx.Logs, "\n"), "favorite number is 42") {
				t.Fatalf("\t%s\tTest %d:\tShould record the program logs: %v", failed, testID, tx.Logs)
			}
			t.Logf("\t%s\tTest %d:\tShould record the program logs.", success, testID)

			got, err := favorites.Query(st, kennedy.id)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to query the favorites: %v", failed, testID, err)
			}
			if !reflect.DeepEqual(got, first) {
				t.Logf("\t%s\tTest %d:\tgot: %+v", failed, testID, got)
				t.Logf("\t%s\tTest %d:\texp: %+v", failed, testID, first)
				t.Fatalf("\t%s\tTest %d:\tShould read back what was written.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould read back what was written.", success, testID)

			account, err := st.QueryAccount(kennedy.id)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to query the user: %v", failed, testID, err)
			}

			exp := 1_000_000 - g.MinimumBalance(favorites.Space)
			if account.Balance != exp || account.Nonce != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould pay for the record and move the nonce: balance %d exp %d, nonce %d", failed, testID, account.Balance, exp, account.Nonce)
			}
			t.Logf("\t%s\tTest %d:\tShould pay for the record and move the nonce.", success, testID)

			address, _, _ := favorites.Address(kennedy.id)
			record, err := st.QueryAccount(address)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to query the record: %v", failed, testID, err)
			}
			if record.Owner != favorites.ProgramID || len(record.Data) != favorites.Space {
				t.Fatalf("\t%s\tTest %d:\tShould own a record of %d bytes: owner %s, size %d", failed, testID, favorites.Space, record.Owner, len(record.Data))
			}
			t.Logf("\t%s\tTest %d:\tShould own a record of %d bytes.", success, testID, favorites.Space)
		}

		testID++
		t.Logf("\tTest %d:\tWhen overwriting existing favorites.", testID)
		{
			before, _ := st.QueryAccount(kennedy.id)

			if _, err := st.SubmitTransaction(signFavorites(t, kennedy, g.ChainID, 2, second)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to submit the transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to submit the transaction.", success, testID)

			got, err := favorites.Query(st, kennedy.id)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to query the favorites: %v", failed, testID, err)
			}
			if got.Number != 7 || got.Color != "red" || len(got.Hobbies) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould fully replace the record: %+v", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould fully replace the record.", success, testID)

			after, _ := st.QueryAccount(kennedy.id)
			if after.Balance != before.Balance {
				t.Fatalf("\t%s\tTest %d:\tShould not pay again: before %d, after %d", failed, testID, before.Balance, after.Balance)
			}
			t.Logf("\t%s\tTest %d:\tShould not pay again.", success, testID)

			if n := st.RetrieveLatestBlock().Header.Number; n != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould have 2 blocks, got %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould have 2 blocks.", success, testID)

			blocks, err := st.QueryBlocksByAccount(kennedy.id)
			if err != nil || len(blocks) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould find 2 blocks for the user: %d, %v", failed, testID, len(blocks), err)
			}
			t.Logf("\t%s\tTest %d:\tShould find 2 blocks for the user.", success, testID)
		}
	}
}

func Test_Rejected(t *testing.T) {
	kennedy := newUser(t, kennedyECDSA)
	other := newUser(t, "")
	broke := newUser(t, "")

	g := newGenesis(kennedy, other)
	st := newState(t, g, memory.New())
	defer st.Shutdown()

	address, _, _ := favorites.Address(kennedy.id)
	otherAddress, _, _ := favorites.Address(other.id)

	fav := favorites.Favorites{Number: 1, Color: "green"}

	unknownInstruction := rawSetFavorites(1, "green")
	unknownInstruction[0] ^= 0xFF

	rawTx := func(nonce uint64, data []byte, metas ...database.AccountMeta) database.Tx {
		if metas == nil {
			metas = []database.AccountMeta{
				{AccountID: kennedy.id, IsSigner: true, IsWritable: true},
				{AccountID: address, IsWritable: true},
				{AccountID: program.SystemProgramID},
			}
		}

		tx, err := database.NewTx(g.ChainID, nonce, favorites.ProgramID, metas, data)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the transaction: %v", failed, err)
		}
		return tx
	}

	// Give the user an existing record and nonce so stale nonces and
	// untouched state can be checked.
	if _, err := st.SubmitTransaction(signFavorites(t, kennedy, g.ChainID, 1, fav)); err != nil {
		t.Fatalf("\t%s\tShould be able to seed the user's favorites: %v", failed, err)
	}

	tt := []struct {
		name  string
		tx    database.SignedTx
		errIs error
	}{
		{
			name:  "color of 51 bytes",
			tx:    sign(t, kennedy, rawTx(2, rawSetFavorites(1, strings.Repeat("c", 51)))),
			errIs: favorites.ErrColorTooLong,
		},
		{
			name:  "six hobbies",
			tx:    sign(t, kennedy, rawTx(2, rawSetFavorites(1, "green", "a", "b", "c", "d", "e", "f"))),
			errIs: favorites.ErrTooManyHobbies,
		},
		{
			name:  "hobby of 51 bytes",
			tx:    sign(t, kennedy, rawTx(2, rawSetFavorites(1, "green", strings.Repeat("h", 51)))),
			errIs: favorites.ErrHobbyTooLong,
		},
		{
			name:  "truncated instruction",
			tx:    sign(t, kennedy, rawTx(2, rawSetFavorites(1, "green")[:12])),
			errIs: favorites.ErrInstructionDidNotParse,
		},
		{
			name:  "record address of another user",
			tx:    sign(t, kennedy, rawTx(2, rawSetFavorites(1, "green"), database.AccountMeta{AccountID: kennedy.id, IsSigner: true, IsWritable: true}, database.AccountMeta{AccountID: otherAddress, IsWritable: true}, database.AccountMeta{AccountID: program.SystemProgramID})),
			errIs: favorites.ErrSeedsConstraint,
		},
		{
			name: "writing another user's record",
			tx: sign(t, kennedy, rawTx(2, rawSetFavorites(1, "green"),
				database.AccountMeta{AccountID: other.id, IsWritable: true},
				database.AccountMeta{AccountID: otherAddress, IsWritable: true},
				database.AccountMeta{AccountID: program.SystemProgramID})),
			errIs: favorites.ErrUnauthorized,
		},
		{
			name: "claiming another user's signature",
			tx: sign(t, kennedy, rawTx(2, rawSetFavorites(1, "green"),
				database.AccountMeta{AccountID: other.id, IsSigner: true, IsWritable: true},
				database.AccountMeta{AccountID: otherAddress, IsWritable: true},
				database.AccountMeta{AccountID: program.SystemProgramID})),
			errIs: program.ErrMissingSignature,
		},
		{
			name:  "invalid utf-8 color",
			tx:    sign(t, kennedy, rawTx(2, rawSetFavorites(1, "\xff\xfe"))),
			errIs: favorites.ErrInvalidUTF8,
		},
		{
			name:  "invalid utf-8 hobby",
			tx:    sign(t, kennedy, rawTx(2, rawSetFavorites(1, "green", "chess", "\xc0"))),
			errIs: favorites.ErrInstructionDidNotParse,
		},
		{
			name:  "unknown instruction",
			tx:    sign(t, kennedy, rawTx(2, unknownInstruction)),
			errIs: favorites.ErrUnknownInstruction,
		},
		{
			name: "wrong system program",
			tx: sign(t, kennedy, rawTx(2, rawSetFavorites(1, "green"),
				database.AccountMeta{AccountID: kennedy.id, IsSigner: true, IsWritable: true},
				database.AccountMeta{AccountID: address, IsWritable: true},
				database.AccountMeta{AccountID: other.id})),
			errIs: favorites.ErrInvalidSystemProgram,
		},
		{
			name: "read only user",
			tx: sign(t, kennedy, rawTx(2, rawSetFavorites(1, "green"),
				database.AccountMeta{AccountID: kennedy.id, IsSigner: true},
				database.AccountMeta{AccountID: address, IsWritable: true},
				database.AccountMeta{AccountID: program.SystemProgramID})),
			errIs: program.ErrNotWritable,
		},
		{
			name:  "stale nonce",
			tx:    signFavorites(t, kennedy, g.ChainID, 1, fav),
			errIs: nil,
		},
		{
			name:  "wrong chain",
			tx:    signFavorites(t, kennedy, g.ChainID+1, 2, fav),
			errIs: nil,
		},
		{
			name:  "unfunded user",
			tx:    signFavorites(t, broke, g.ChainID, 1, fav),
			errIs: program.ErrInsufficientFunds,
		},
	}

	t.Log("Given the need to reject invalid transactions without changing state.")
	{
		for testID, test := range tt {
			tf := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %s.", testID, test.name)
				{
					accounts := st.RetrieveAccounts()
					latest := st.RetrieveLatestBlock()

					_, err := st.SubmitTransaction(test.tx)
					if err == nil {
						t.Fatalf("\t%s\tTest %d:\tShould reject the transaction.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould reject the transaction: %v", success, testID, err)

					if test.errIs != nil {
						if !errors.Is(err, test.errIs) {
							t.Fatalf("\t%s\tTest %d:\tShould get %q: got %q", failed, testID, test.errIs, err)
						}
						t.Logf("\t%s\tTest %d:\tShould get %q.", success, testID, test.errIs)
					}

					if !reflect.DeepEqual(accounts, st.RetrieveAccounts()) {
						t.Fatalf("\t%s\tTest %d:\tShould leave the accounts unchanged.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould leave the accounts unchanged.", success, testID)

					if st.RetrieveLatestBlock().Hash() != latest.Hash() {
						t.Fatalf("\t%s\tTest %d:\tShould not produce a block.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould not produce a block.", success, testID)
				}
			}

			t.Run(test.name, tf)
		}

		got, err := favorites.Query(st, kennedy.id)
		if err != nil || !reflect.DeepEqual(got.Color, fav.Color) || got.Number != fav.Number {
			t.Fatalf("\t%s\tShould still hold the original favorites: %+v, %v", failed, got, err)
		}
		t.Logf("\t%s\tShould still hold the original favorites.", success)

		if _, err := favorites.Query(st, other.id); !errors.Is(err, favorites.ErrNotFound) {
			t.Fatalf("\t%s\tShould not have created favorites for the other user: %v", failed, err)
		}
		t.Logf("\t%s\tShould not have created favorites for the other user.", success)
	}
}

func Test_Concurrent(t *testing.T) {
	users := []user{newUser(t, kennedyECDSA), newUser(t, ""), newUser(t, ""), newUser(t, "")}

	g := newGenesis(users...)
	st := newState(t, g, memory.New())
	defer st.Shutdown()

	t.Log("Given the need for identities to set favorites at the same time.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen %d users submit concurrently.", testID, len(users))
		{
			var wg sync.WaitGroup
			wg.Add(len(users))

			errs := make([]error, len(users))
			for i, u := range users {
				go func() {
					defer wg.Done()
					fav := favorites.Favorites{Number: uint64(i), Color: string(u.id), Hobbies: []string{"go"}}
					_, errs[i] = st.SubmitTransaction(signFavorites(t, u, g.ChainID, 1, fav))
				}()
			}
			wg.Wait()

			for i, err := range errs {
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to submit for user %d: %v", failed, testID, i, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to submit for every user.", success, testID)

			for i, u := range users {
				got, err := favorites.Query(st, u.id)
				if err != nil || got.Number != uint64(i) || got.Color != string(u.id) {
					t.Fatalf("\t%s\tTest %d:\tShould read back user %d's own favorites: %+v, %v", failed, testID, i, got, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould read back every user's own favorites.", success, testID)

			if n := st.RetrieveLatestBlock().Header.Number; n != uint64(len(users)) {
				t.Fatalf("\t%s\tTest %d:\tShould have one block per transaction, got %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould have one block per transaction.", success, testID)
		}
	}
}

func Test_Replay(t *testing.T) {
	kennedy := newUser(t, kennedyECDSA)
	g := newGenesis(kennedy)
	dbPath := t.TempDir()

	fav := favorites.Favorites{Number: 42, Color: "blue", Hobbies: []string{"chess", "reading"}}

	t.Log("Given the need to rebuild the ledger from the block journal.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen restarting after writing blocks.", testID)
		{
			storage, err := disk.New(dbPath)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open storage: %v", failed, testID, err)
			}

			st := newState(t, g, storage)
			if _, err := st.SubmitTransaction(signFavorites(t, kennedy, g.ChainID, 1, favorites.Favorites{Number: 1})); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to submit the first transaction: %v", failed, testID, err)
			}
			if _, err := st.SubmitTransaction(signFavorites(t, kennedy, g.ChainID, 2, fav)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to submit the second transaction: %v", failed, testID, err)
			}
			accounts := st.RetrieveAccounts()
			st.Shutdown()

			storage, err = disk.New(dbPath)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to reopen storage: %v", failed, testID, err)
			}

			st = newState(t, g, storage)
			defer st.Shutdown()

			if !reflect.DeepEqual(accounts, st.RetrieveAccounts()) {
				t.Fatalf("\t%s\tTest %d:\tShould rebuild the same accounts.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould rebuild the same accounts.", success, testID)

			got, err := favorites.Query(st, kennedy.id)
			if err != nil || !reflect.DeepEqual(got, fav) {
				t.Fatalf("\t%s\tTest %d:\tShould read back the latest favorites: %+v, %v", failed, testID, got, err)
			}
			t.Logf("\t%s\tTest %d:\tShould read back the latest favorites.", success, testID)

			if _, err := st.SubmitTransaction(signFavorites(t, kennedy, g.ChainID, 2, fav)); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject a replayed nonce after restart.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a replayed nonce after restart.", success, testID)

			blocks := st.QueryBlocksByNumber(1, state.QueryLastest)
			if len(blocks) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould list 2 blocks, got %d.", failed, testID, len(blocks))
			}
			t.Logf("\t%s\tTest %d:\tShould list 2 blocks.", success, testID)
		}
	}
}
