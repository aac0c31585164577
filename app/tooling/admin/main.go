// This program performs administrative tasks against a node's block journal.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/favorites/app/tooling/admin/commands"
	"github.com/ardanlabs/favorites/business/core/favorites"
	"github.com/ardanlabs/favorites/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/favorites/foundation/blockchain/genesis"
	"github.com/ardanlabs/favorites/foundation/blockchain/program"
	"github.com/ardanlabs/favorites/foundation/blockchain/state"
	"github.com/ardanlabs/favorites/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		if !errors.Is(err, commands.ErrHelp) {
			log.Errorw("startup", "ERROR", err)
		}
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args  conf.Args
		State struct {
			DBPath      string `conf:"default:zblock/blocks/"`
			GenesisPath string `conf:"default:zblock/genesis.json"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "favorites ledger admin",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	storage, err := disk.New(cfg.State.DBPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}

	// Replaying the journal validates every block and rebuilds the accounts.
	st, err := state.New(state.Config{
		Genesis:  gen,
		Storage:  storage,
		Programs: []program.Program{favorites.NewProgram()},
		EvHandler: func(v string, args ...any) {
			log.Debugw(fmt.Sprintf(v, args...))
		},
	})
	if err != nil {
		return fmt.Errorf("replaying journal: %w", err)
	}
	defer st.Shutdown()

	return processCommands(cfg.Args, st)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, st *state.State) error {
	switch args.Num(0) {
	case "blocks":
		if err := commands.Blocks(os.Stdout, args, st); err != nil {
			return fmt.Errorf("listing blocks: %w", err)
		}

	case "records":
		if err := commands.Records(os.Stdout, args, st); err != nil {
			return fmt.Errorf("listing records: %w", err)
		}

	case "verify":
		if err := commands.Verify(os.Stdout, st); err != nil {
			return fmt.Errorf("verifying journal: %w", err)
		}

	default:
		fmt.Println("blocks [account]: list the blocks, optionally only those touching the account")
		fmt.Println("records [account]: list the favorites records, optionally only for the account")
		fmt.Println("verify: replay the journal and report the latest block")
		return commands.ErrHelp
	}

	return nil
}
