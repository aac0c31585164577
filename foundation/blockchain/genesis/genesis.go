// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"os"
	"time"
)

// AccountStorageOverhead is the number of bytes every account is charged
// for on top of its data, covering the metadata the ledger keeps about it.
const AccountStorageOverhead = 128

// Genesis represents the genesis file.
type Genesis struct {
	Date        time.Time         `json:"date"`
	ChainID     uint16            `json:"chain_id"`      // The chain id represents an unique id for this running instance.
	RentPerByte uint64            `json:"rent_per_byte"` // Price of one byte of account storage, paid once at creation.
	Balances    map[string]uint64 `json:"balances"`
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// MinimumBalance returns the balance an account holding space bytes of data
// must be funded with when it is created.
func (g Genesis) MinimumBalance(space uint64) uint64 {
	return (AccountStorageOverhead + space) * g.RentPerByte
}
