package database

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ardanlabs/favorites/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AccountMeta describes an account an instruction wants to read or write and
// whether the transaction signer is vouching for it.
type AccountMeta struct {
	AccountID  AccountID `json:"account"`
	IsSigner   bool      `json:"is_signer"`
	IsWritable bool      `json:"is_writable"`
}

// =============================================================================

// Tx is an instruction sent to a program along with the accounts it touches.
type Tx struct {
	ChainID   uint16        `json:"chain_id"`   // Unique id for the ledger the transaction is meant for.
	Nonce     uint64        `json:"nonce"`      // Unique id for the transaction supplied by the signer.
	ProgramID AccountID     `json:"program_id"` // Program that processes the instruction.
	Accounts  []AccountMeta `json:"accounts"`   // Accounts the instruction reads and writes, in program order.
	Data      []byte        `json:"data"`       // Instruction data the program decodes.
}

// NewTx constructs a new transaction.
func NewTx(chainID uint16, nonce uint64, programID AccountID, accounts []AccountMeta, data []byte) (Tx, error) {
	programID, err := ToAccountID(string(programID))
	if err != nil {
		return Tx{}, fmt.Errorf("program id is not properly formatted")
	}

	metas := make([]AccountMeta, len(accounts))
	for i, meta := range accounts {
		id, err := ToAccountID(string(meta.AccountID))
		if err != nil {
			return Tx{}, fmt.Errorf("account %q is not properly formatted", meta.AccountID)
		}
		meta.AccountID = id
		metas[i] = meta
	}

	tx := Tx{
		ChainID:   chainID,
		Nonce:     nonce,
		ProgramID: programID,
		Accounts:  metas,
		Data:      data,
	}

	return tx, nil
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {

	// Sign the transaction with the private key to produce a signature.
	v, r, s, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	// Construct the signed transaction by adding the signature
	// in the [R|S|V] format.
	signedTx := SignedTx{
		Tx: tx,
		V:  v,
		R:  r,
		S:  s,
	}

	return signedTx, nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the ledger.
type SignedTx struct {
	Tx
	V *big.Int `json:"v"` // Recovery identifier, either 31 or 32 with the favorites id.
	R *big.Int `json:"r"` // First coordinate of the ECDSA signature.
	S *big.Int `json:"s"` // Second coordinate of the ECDSA signature.
}

// Validate verifies the transaction has a proper signature that conforms to
// our standards and the accounts it lists are well formed.
func (tx SignedTx) Validate() error {
	if !tx.ProgramID.IsChecksummed() {
		return errors.New("invalid account for program id")
	}

	// Accounts are keyed by their checksum form. Accepting any other casing
	// would let two strings name the same address.
	for _, meta := range tx.Accounts {
		if !meta.AccountID.IsChecksummed() {
			return fmt.Errorf("invalid account %q, must be checksum encoded", meta.AccountID)
		}
	}

	if err := signature.VerifySignature(tx.V, tx.R, tx.S); err != nil {
		return err
	}

	return nil
}

// FromAccount extracts the account id that signed the transaction.
func (tx SignedTx) FromAccount() (AccountID, error) {
	address, err := signature.FromAddress(tx.Tx, tx.V, tx.R, tx.S)
	return AccountID(address), err
}

// SignatureString returns the signature as a string.
func (tx SignedTx) SignatureString() string {
	return signature.SignatureString(tx.V, tx.R, tx.S)
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	from, err := tx.FromAccount()
	if err != nil {
		from = "unknown"
	}

	return fmt.Sprintf("%s:%d", from, tx.Nonce)
}

// =============================================================================

// BlockTx represents the transaction as it's recorded inside a block. This
// includes a timestamp and the trace messages emitted while it executed.
type BlockTx struct {
	SignedTx
	TimeStamp uint64   `json:"timestamp"` // The time the transaction was received.
	Logs      []string `json:"logs"`      // Informational traces emitted by the runtime and program.
}

// NewBlockTx constructs a new block transaction.
func NewBlockTx(signedTx SignedTx, logs []string) BlockTx {
	return BlockTx{
		SignedTx:  signedTx,
		TimeStamp: uint64(time.Now().UTC().UnixMilli()),
		Logs:      logs,
	}
}

// Touches reports whether the transaction was signed by or lists the
// specified account.
func (tx BlockTx) Touches(accountID AccountID) bool {
	if from, err := tx.FromAccount(); err == nil && from == accountID {
		return true
	}

	for _, meta := range tx.Accounts {
		if meta.AccountID == accountID {
			return true
		}
	}

	return false
}

// Hash implements the merkle Hashable interface for providing a hash
// of a block transaction.
func (tx BlockTx) Hash() ([]byte, error) {
	return hexutil.Decode(signature.Hash(tx))
}

// Equals implements the merkle Hashable interface. Two block transactions
// are the same when the nonce and signature match.
func (tx BlockTx) Equals(otherTx BlockTx) bool {
	txSig := signature.ToSignatureBytes(tx.V, tx.R, tx.S)
	otherTxSig := signature.ToSignatureBytes(otherTx.V, otherTx.R, otherTx.S)

	return tx.Nonce == otherTx.Nonce && bytes.Equal(txSig, otherTxSig)
}
