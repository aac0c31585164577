package favorites

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/ardanlabs/favorites/foundation/blockchain/program"
)

// Positions of the accounts the set favorites instruction expects.
const (
	accountUser = iota
	accountFavorites
	accountSystemProgram
)

// Program implements the favorites on-chain program.
type Program struct{}

// NewProgram constructs the favorites program for registration with the
// runtime.
func NewProgram() *Program {
	return &Program{}
}

// ID returns the address the program is registered under.
func (*Program) ID() database.AccountID {
	return ProgramID
}

// Process decodes the instruction and dispatches it.
func (p *Program) Process(ctx *program.Context, data []byte) error {
	if len(data) < DiscriminatorSize {
		return ErrUnknownInstruction
	}

	if [DiscriminatorSize]byte(data[:DiscriminatorSize]) != setFavoritesDiscriminator {
		return ErrUnknownInstruction
	}

	d := decoder{data: data[DiscriminatorSize:]}
	fav := d.readFavorites()

	switch {
	case errors.Is(d.err, errShortBuffer):
		return fmt.Errorf("%w: %s", ErrInstructionDidNotParse, d.err)

	case d.err != nil:
		return d.err

	case d.remaining() != 0:
		return fmt.Errorf("%w: %d trailing bytes", ErrInstructionDidNotParse, d.remaining())
	}

	return p.setFavorites(ctx, fav)
}

// setFavorites writes the record for the signing user, creating the record
// account the first time.
func (p *Program) setFavorites(ctx *program.Context, fav Favorites) error {
	if err := fav.Validate(); err != nil {
		return err
	}

	if ctx.Len() < 3 {
		return program.ErrNotEnoughAccounts
	}

	user, _ := ctx.Meta(accountUser)
	if !user.IsSigner || user.AccountID != ctx.Signer {
		return fmt.Errorf("%w: %s", ErrUnauthorized, user.AccountID)
	}

	// The user pays for the record so it has to be writable.
	if !user.IsWritable {
		return fmt.Errorf("%w: %s", program.ErrNotWritable, user.AccountID)
	}

	address, bump, err := Address(user.AccountID)
	if err != nil {
		return err
	}

	record, _ := ctx.Meta(accountFavorites)
	if record.AccountID != address {
		return fmt.Errorf("%w: got %s, exp %s", ErrSeedsConstraint, record.AccountID, address)
	}

	if sys, _ := ctx.Meta(accountSystemProgram); sys.AccountID != program.SystemProgramID {
		return fmt.Errorf("%w: %s", ErrInvalidSystemProgram, sys.AccountID)
	}

	account, err := ctx.Account(accountFavorites)
	if err != nil {
		return err
	}

	switch {
	case !account.IsInitialized():
		if err := ctx.CreateAccount(accountUser, accountFavorites, Space, ProgramID); err != nil {
			return err
		}

	case account.Owner != ProgramID:
		return fmt.Errorf("%w: %s owned by %s", program.ErrIllegalOwner, address, account.Owner)

	default:
		var existing Favorites
		if err := existing.UnmarshalBinary(account.Data); err != nil {
			return err
		}
	}

	ctx.Log("Greetings from %s", ProgramID)
	ctx.Log("User %s's favorite number is %d, favorite color is %s, and their hobbies are %q", user.AccountID, fav.Number, fav.Color, fav.Hobbies)
	ctx.Log("Favorites account %s, bump %d", address, bump)

	data, err := fav.MarshalBinary()
	if err != nil {
		return err
	}

	return ctx.WriteData(accountFavorites, data)
}

// =============================================================================

// EncodeSetFavorites returns the instruction data for setting the favorites.
func EncodeSetFavorites(fav Favorites) ([]byte, error) {
	if err := fav.Validate(); err != nil {
		return nil, err
	}

	data := make([]byte, 0, DiscriminatorSize+InitSpace)
	data = append(data, setFavoritesDiscriminator[:]...)

	return fav.encode(data), nil
}

// NewSetFavoritesTx constructs the transaction a user signs to set their
// favorites. The record address is derived from the user.
func NewSetFavoritesTx(chainID uint16, nonce uint64, user database.AccountID, fav Favorites) (database.Tx, error) {
	user, err := database.ToAccountID(string(user))
	if err != nil {
		return database.Tx{}, err
	}

	data, err := EncodeSetFavorites(fav)
	if err != nil {
		return database.Tx{}, err
	}

	address, _, err := Address(user)
	if err != nil {
		return database.Tx{}, err
	}

	accounts := []database.AccountMeta{
		{AccountID: user, IsSigner: true, IsWritable: true},
		{AccountID: address, IsWritable: true},
		{AccountID: program.SystemProgramID},
	}

	return database.NewTx(chainID, nonce, ProgramID, accounts, data)
}
