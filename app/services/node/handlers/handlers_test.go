package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/favorites/app/services/node/handlers"
	"github.com/ardanlabs/favorites/business/core/favorites"
	"github.com/ardanlabs/favorites/business/web/errs"
	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/ardanlabs/favorites/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/favorites/foundation/blockchain/genesis"
	"github.com/ardanlabs/favorites/foundation/blockchain/program"
	"github.com/ardanlabs/favorites/foundation/blockchain/state"
	"github.com/ardanlabs/favorites/foundation/events"
	"github.com/ardanlabs/favorites/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

const kennedyECDSA = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

type apiTest struct {
	app     http.Handler
	st      *state.State
	kennedy database.AccountID
}

func newAPITest(t *testing.T) apiTest {
	key, err := crypto.HexToECDSA(kennedyECDSA)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the key: %v", failed, err)
	}
	kennedy := database.PublicKeyToAccountID(key.PublicKey)

	folder := t.TempDir()
	if err := crypto.SaveECDSA(filepath.Join(folder, "kennedy.ecdsa"), key); err != nil {
		t.Fatalf("\t%s\tShould be able to save the key: %v", failed, err)
	}

	ns, err := nameservice.New(folder)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the name service: %v", failed, err)
	}

	st, err := state.New(state.Config{
		Genesis: genesis.Genesis{
			ChainID:     1,
			RentPerByte: 10,
			Balances:    map[string]uint64{string(kennedy): 1_000_000},
		},
		Storage:  memory.New(),
		Programs: []program.Program{favorites.NewProgram()},
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}
	t.Cleanup(func() { st.Shutdown() })

	app := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		NS:       ns,
		Evts:     events.New(),
	})

	return apiTest{app: app, st: st, kennedy: kennedy}
}

func (at apiTest) do(method string, url string, body []byte) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, url, bytes.NewReader(body))
	w := httptest.NewRecorder()
	at.app.ServeHTTP(w, r)
	return w
}

func (at apiTest) signedTx(t *testing.T, nonce uint64, fav favorites.Favorites) []byte {
	key, _ := crypto.HexToECDSA(kennedyECDSA)

	tx, err := favorites.NewSetFavoritesTx(1, nonce, at.kennedy, fav)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to build the transaction: %v", failed, err)
	}

	signedTx, err := tx.Sign(key)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign the transaction: %v", failed, err)
	}

	data, err := json.Marshal(signedTx)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to marshal the transaction: %v", failed, err)
	}

	return data
}

// =============================================================================

func Test_Favorites(t *testing.T) {
	at := newAPITest(t)

	fav := favorites.Favorites{Number: 42, Color: "blue", Hobbies: []string{"chess", "reading"}}

	t.Log("Given the need to set and read favorites over the api.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the user has not set favorites.", testID)
		{
			w := at.do(http.MethodGet, "/v1/favorites/kennedy", nil)
			if w.Code != http.StatusNotFound {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 404 for the response : %v", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 404 for the response.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen submitting a set favorites transaction.", testID)
		{
			w := at.do(http.MethodPost, "/v1/tx/submit", at.signedTx(t, 1, fav))
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 200 for the response : %v : %s", failed, testID, w.Code, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 200 for the response.", success, testID)

			var got struct {
				FromName string   `json:"from_name"`
				Logs     []string `json:"logs"`
			}
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal the response : %v", failed, testID, err)
			}
			if got.FromName != "kennedy" || len(got.Logs) == 0 {
				t.Fatalf("\t%s\tTest %d:\tShould return the recorded transaction : %+v", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould return the recorded transaction.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen reading the favorites back.", testID)
		{
			w := at.do(http.MethodGet, "/v1/favorites/"+string(at.kennedy), nil)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 200 for the response : %v", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 200 for the response.", success, testID)

			var got struct {
				Name   string              `json:"name"`
				Record favorites.Favorites `json:"favorites"`
			}
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal the response : %v", failed, testID, err)
			}
			if got.Name != "kennedy" || got.Record.Number != 42 || got.Record.Color != "blue" || len(got.Record.Hobbies) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould return the favorites : %+v", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould return the favorites.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen replaying the same transaction.", testID)
		{
			w := at.do(http.MethodPost, "/v1/tx/submit", at.signedTx(t, 1, fav))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 400 for the response : %v", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 400 for the response.", success, testID)
		}
	}
}

func Test_SubmitValidation(t *testing.T) {
	at := newAPITest(t)

	t.Log("Given the need to validate submitted transactions.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the transaction is missing fields.", testID)
		{
			w := at.do(http.MethodPost, "/v1/tx/submit", []byte(`{"chain_id":1,"program_id":"bill"}`))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 400 for the response : %v", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 400 for the response.", success, testID)

			var got errs.Response
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal the response : %v", failed, testID, err)
			}
			if got.Fields["program_id"] == "" || got.Fields["nonce"] == "" {
				t.Fatalf("\t%s\tTest %d:\tShould list the failing fields : %+v", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould list the failing fields.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the body has unknown fields.", testID)
		{
			w := at.do(http.MethodPost, "/v1/tx/submit", []byte(`{"value":10}`))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 400 for the response : %v", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 400 for the response.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen asking for the record address.", testID)
		{
			w := at.do(http.MethodGet, "/v1/favorites/address/kennedy", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 200 for the response : %v", failed, testID, w.Code)
			}

			var got struct {
				Address database.AccountID `json:"address"`
				Rent    uint64             `json:"rent"`
			}
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal the response : %v", failed, testID, err)
			}

			exp, _, _ := favorites.Address(at.kennedy)
			if got.Address != exp || got.Rent != at.st.RetrieveGenesis().MinimumBalance(favorites.Space) {
				t.Fatalf("\t%s\tTest %d:\tShould return the derived address and rent : %+v", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould return the derived address and rent.", success, testID)
		}
	}
}

func Test_BlocksByNumber(t *testing.T) {
	at := newAPITest(t)

	for nonce := uint64(1); nonce <= 2; nonce++ {
		if w := at.do(http.MethodPost, "/v1/tx/submit", at.signedTx(t, nonce, favorites.Favorites{Number: nonce})); w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould be able to submit transaction %d: %v : %s", failed, nonce, w.Code, w.Body.String())
		}
	}

	tt := []struct {
		name    string
		url     string
		status  int
		numbers []uint64
	}{
		{"latest to a later number", "/v1/blocks/list/latest/5", http.StatusOK, []uint64{2}},
		{"number to latest", "/v1/blocks/list/1/latest", http.StatusOK, []uint64{1, 2}},
		{"latest to latest", "/v1/blocks/list/latest/latest", http.StatusOK, []uint64{2}},
		{"latest past the end", "/v1/blocks/list/latest/1", http.StatusBadRequest, nil},
		{"not a number", "/v1/blocks/list/one/2", http.StatusBadRequest, nil},
	}

	t.Log("Given the need to list blocks by number over the api.")
	{
		for testID, test := range tt {
			tf := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen asking for %s.", testID, test.url)
				{
					w := at.do(http.MethodGet, test.url, nil)
					if w.Code != test.status {
						t.Fatalf("\t%s\tTest %d:\tShould receive a status code of %d for the response : %v : %s", failed, testID, test.status, w.Code, w.Body.String())
					}
					t.Logf("\t%s\tTest %d:\tShould receive a status code of %d for the response.", success, testID, test.status)

					if test.status != http.StatusOK {
						return
					}

					var blocks []struct {
						Number uint64 `json:"number"`
					}
					if err := json.Unmarshal(w.Body.Bytes(), &blocks); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to decode the blocks: %v", failed, testID, err)
					}

					if len(blocks) != len(test.numbers) {
						t.Fatalf("\t%s\tTest %d:\tShould get %d blocks, got %d.", failed, testID, len(test.numbers), len(blocks))
					}
					for i, blk := range blocks {
						if blk.Number != test.numbers[i] {
							t.Fatalf("\t%s\tTest %d:\tShould get block %d at %d, got %d.", failed, testID, test.numbers[i], i, blk.Number)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get blocks %v.", success, testID, test.numbers)
				}
			}

			t.Run(test.name, tf)
		}
	}
}
