// Package votes contains RPC wrappers for Votes contract.
package votes

import (
	"errors"
	"fmt"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/nep17"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"math/big"
)

// Checkpoint is a contract-specific votes.Checkpoint type used by its methods.
type Checkpoint struct {
	FromSequence *big.Int
	Votes *big.Int
}

// DelegateChangedEvent represents "DelegateChanged" event emitted by the contract.
type DelegateChangedEvent struct {
	Delegator util.Uint160
	From util.Uint160
	To util.Uint160
}

// DelegateVotesChangedEvent represents "DelegateVotesChanged" event emitted by the contract.
type DelegateVotesChangedEvent struct {
	Delegate util.Uint160
	OldVotes *big.Int
	NewVotes *big.Int
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	nep17.Invoker
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	nep17.Actor

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	nep17.TokenReader
	invoker Invoker
	hash util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	nep17.TokenWriter
	actor Actor
	hash util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{*nep17.NewReader(invoker, hash), invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	var nep17t = nep17.New(actor, hash)
	return &Contract{ContractReader{nep17t.TokenReader, actor, hash}, nep17t.TokenWriter, actor, hash}
}

// CheckpointCount invokes `checkpointCount` method of contract.
func (c *ContractReader) CheckpointCount(account util.Uint160) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "checkpointCount", account))
}

// DelegateOf invokes `delegateOf` method of contract.
func (c *ContractReader) DelegateOf(account util.Uint160) (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "delegateOf", account))
}

// GetCheckpoint invokes `getCheckpoint` method of contract.
func (c *ContractReader) GetCheckpoint(account util.Uint160, index *big.Int) (*Checkpoint, error) {
	return itemToCheckpoint(unwrap.Item(c.invoker.Call(c.hash, "getCheckpoint", account, index)))
}

// GetCurrentVotes invokes `getCurrentVotes` method of contract.
func (c *ContractReader) GetCurrentVotes(account util.Uint160) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "getCurrentVotes", account))
}

// GetPriorVotes invokes `getPriorVotes` method of contract.
func (c *ContractReader) GetPriorVotes(account util.Uint160, sequence *big.Int) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "getPriorVotes", account, sequence))
}

// NonceOf invokes `nonceOf` method of contract.
func (c *ContractReader) NonceOf(account util.Uint160) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "nonceOf", account))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// Burn creates a transaction invoking `burn` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Burn(from util.Uint160, amount *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "burn", from, amount)
}

// BurnTransaction creates a transaction invoking `burn` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) BurnTransaction(from util.Uint160, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "burn", from, amount)
}

// BurnUnsigned creates a transaction invoking `burn` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) BurnUnsigned(from util.Uint160, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "burn", nil, from, amount)
}

// Delegate creates a transaction invoking `delegate` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Delegate(delegator util.Uint160, delegatee util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "delegate", delegator, delegatee)
}

// DelegateTransaction creates a transaction invoking `delegate` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) DelegateTransaction(delegator util.Uint160, delegatee util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "delegate", delegator, delegatee)
}

// DelegateUnsigned creates a transaction invoking `delegate` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) DelegateUnsigned(delegator util.Uint160, delegatee util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "delegate", nil, delegator, delegatee)
}

// DelegateBySig creates a transaction invoking `delegateBySig` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) DelegateBySig(delegatee util.Uint160, nonce *big.Int, expiry *big.Int, pub *keys.PublicKey, signature []byte) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "delegateBySig", delegatee, nonce, expiry, pub, signature)
}

// DelegateBySigTransaction creates a transaction invoking `delegateBySig` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) DelegateBySigTransaction(delegatee util.Uint160, nonce *big.Int, expiry *big.Int, pub *keys.PublicKey, signature []byte) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "delegateBySig", delegatee, nonce, expiry, pub, signature)
}

// DelegateBySigUnsigned creates a transaction invoking `delegateBySig` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) DelegateBySigUnsigned(delegatee util.Uint160, nonce *big.Int, expiry *big.Int, pub *keys.PublicKey, signature []byte) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "delegateBySig", nil, delegatee, nonce, expiry, pub, signature)
}

// Mint creates a transaction invoking `mint` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Mint(to util.Uint160, amount *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "mint", to, amount)
}

// MintTransaction creates a transaction invoking `mint` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) MintTransaction(to util.Uint160, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "mint", to, amount)
}

// MintUnsigned creates a transaction invoking `mint` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) MintUnsigned(to util.Uint160, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "mint", nil, to, amount)
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(nefFile []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "update", nefFile, manifest, data)
}

// UpdateTransaction creates a transaction invoking `update` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateTransaction(nefFile []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "update", nefFile, manifest, data)
}

// UpdateUnsigned creates a transaction invoking `update` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateUnsigned(nefFile []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "update", nil, nefFile, manifest, data)
}

// itemToCheckpoint converts stack item into *Checkpoint.
func itemToCheckpoint(item stackitem.Item, err error) (*Checkpoint, error) {
	if err != nil {
		return nil, err
	}
	var res = new(Checkpoint)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of Checkpoint from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *Checkpoint) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 2 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	res.FromSequence, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field FromSequence: %w", err)
	}

	index++
	res.Votes, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Votes: %w", err)
	}

	return nil
}

// DelegateChangedEventsFromApplicationLog retrieves a set of all emitted events
// with "DelegateChanged" name from the provided [result.ApplicationLog].
func DelegateChangedEventsFromApplicationLog(log *result.ApplicationLog) ([]*DelegateChangedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*DelegateChangedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "DelegateChanged" {
				continue
			}
			event := new(DelegateChangedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize DelegateChangedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to DelegateChangedEvent or
// returns an error if it's not possible to do to so.
func (e *DelegateChangedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 3 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	e.Delegator, err = func (item stackitem.Item) (util.Uint160, error) {
		b, err := item.TryBytes()
		if err != nil {
			return util.Uint160{}, err
		}
		u, err := util.Uint160DecodeBytesBE(b)
		if err != nil {
			return util.Uint160{}, err
		}
		return u, nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field Delegator: %w", err)
	}

	index++
	e.From, err = func (item stackitem.Item) (util.Uint160, error) {
		b, err := item.TryBytes()
		if err != nil {
			return util.Uint160{}, err
		}
		u, err := util.Uint160DecodeBytesBE(b)
		if err != nil {
			return util.Uint160{}, err
		}
		return u, nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field From: %w", err)
	}

	index++
	e.To, err = func (item stackitem.Item) (util.Uint160, error) {
		b, err := item.TryBytes()
		if err != nil {
			return util.Uint160{}, err
		}
		u, err := util.Uint160DecodeBytesBE(b)
		if err != nil {
			return util.Uint160{}, err
		}
		return u, nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field To: %w", err)
	}

	return nil
}

// DelegateVotesChangedEventsFromApplicationLog retrieves a set of all emitted events
// with "DelegateVotesChanged" name from the provided [result.ApplicationLog].
func DelegateVotesChangedEventsFromApplicationLog(log *result.ApplicationLog) ([]*DelegateVotesChangedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*DelegateVotesChangedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "DelegateVotesChanged" {
				continue
			}
			event := new(DelegateVotesChangedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize DelegateVotesChangedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to DelegateVotesChangedEvent or
// returns an error if it's not possible to do to so.
func (e *DelegateVotesChangedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 3 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	e.Delegate, err = func (item stackitem.Item) (util.Uint160, error) {
		b, err := item.TryBytes()
		if err != nil {
			return util.Uint160{}, err
		}
		u, err := util.Uint160DecodeBytesBE(b)
		if err != nil {
			return util.Uint160{}, err
		}
		return u, nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field Delegate: %w", err)
	}

	index++
	e.OldVotes, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field OldVotes: %w", err)
	}

	index++
	e.NewVotes, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field NewVotes: %w", err)
	}

	return nil
}
