// Package deploy provides Neo blockchain deployment of the Votes contract.
package deploy

import (
	"context"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"
)

// Blockchain groups services provided by particular Neo blockchain network
// that are required for the Votes contract deployment.
type Blockchain interface {
	// RPCActor groups functions needed to compose and send transactions to
	// the blockchain.
	actor.RPCActor

	// GetContractStateByHash returns network state of the smart contract
	// by its address. It returns an error if the requested contract is
	// missing from the chain.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)
}

// Prm groups parameters of the Votes contract deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Particular Neo blockchain instance the contract is deployed to.
	Blockchain Blockchain

	// Local process account used for transaction signing (must be unlocked).
	LocalAccount *wallet.Account

	// Compiled contract.
	NEF      nef.File
	Manifest manifest.Manifest

	// Optional data passed into the _deploy method.
	DeployData any
}

// Deploy deploys the Votes contract to the Neo network represented by
// prm.Blockchain unless a contract with the same sender, NEF checksum and
// name is already on the chain. The address of the contract is returned in
// both cases. Deployment progress is logged via prm.Logger.
func Deploy(ctx context.Context, prm Prm) (util.Uint160, error) {
	l := prm.Logger
	if l == nil {
		l = zap.NewNop()
	}

	act, err := actor.NewSimple(prm.Blockchain, prm.LocalAccount)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("init actor: %w", err)
	}

	contractHash := state.CreateContractHash(act.Sender(), prm.NEF.Checksum, prm.Manifest.Name)

	if st, err := prm.Blockchain.GetContractStateByHash(contractHash); err == nil {
		l.Info("contract is already deployed", zap.Stringer("address", st.Hash))
		return st.Hash, nil
	}

	if err := ctx.Err(); err != nil {
		return util.Uint160{}, fmt.Errorf("deployment aborted: %w", err)
	}

	l.Info("sending deployment transaction...", zap.Stringer("address", contractHash))

	txHash, vub, err := management.New(act).Deploy(&prm.NEF, &prm.Manifest, prm.DeployData)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("deploy contract: %w", err)
	}

	l.Info("deployment transaction is sent, waiting for persistence...",
		zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	res, err := act.Wait(txHash, vub, nil)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("wait for deployment transaction: %w", err)
	}
	if res.VMState != vmstate.Halt {
		return util.Uint160{}, fmt.Errorf("deployment transaction failed: %s", res.FaultException)
	}

	l.Info("contract is deployed", zap.Stringer("address", contractHash))

	return contractHash, nil
}
