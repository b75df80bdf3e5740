package votes

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/convert"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/crypto"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/ledger"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/votes-contract/common"
)

type (
	// Token holds all token info.
	Token struct {
		// Ticker symbol
		Symbol string
		// Amount of decimals
		Decimals int
	}

	// Checkpoint is a snapshot of a delegate's voting power. It is taken
	// whenever the power changes and stays valid from the block it was
	// taken in until the block of the next snapshot.
	Checkpoint struct {
		// FromSequence is the index of the block the snapshot was taken in.
		FromSequence int
		// Votes is the delegate's voting power as of the end of FromSequence.
		Votes int
	}
)

const (
	symbol   = "VOTE"
	decimals = 0

	// tokenName goes into every signed delegation request and separates
	// this contract's requests from other secp256r1 signing domains.
	tokenName = "Votes"

	balancePrefix    = 'b'
	checkpointPrefix = 'c'
	delegatePrefix   = 'd'
	noncePrefix      = 'k'
	countPrefix      = 'n'

	supplyKey = "supply"
)

const (
	// ErrInvalidSignature is thrown by DelegateBySig on a signature that
	// does not match the attached public key.
	ErrInvalidSignature = "invalid delegation signature"
	// ErrInvalidNonce is thrown by DelegateBySig when the request nonce
	// differs from the signer's next expected nonce.
	ErrInvalidNonce = "invalid delegation nonce"
	// ErrSignatureExpired is thrown by DelegateBySig after the request
	// expiry time has passed.
	ErrSignatureExpired = "delegation signature expired"
	// ErrFutureQuery is thrown by GetPriorVotes for sequence numbers that
	// are not yet finalized.
	ErrFutureQuery = "sequence not yet finalized"
	// ErrNullAccount is thrown on account arguments of the wrong length.
	ErrNullAccount = "null account"
)

var token Token

func createToken() Token {
	return Token{
		Symbol:   symbol,
		Decimals: decimals,
	}
}

func init() {
	token = createToken()
}

// nolint:unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		args := data.([]any)
		version := args[len(args)-1].(int)

		common.CheckVersion(version)

		return
	}

	runtime.Log("votes contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by committee.
func Update(nefFile, manifest []byte, data any) {
	if !common.HasUpdateAccess() {
		panic("only committee can update contract")
	}

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, nefFile, manifest, common.AppendVersion(data))
	runtime.Log("votes contract updated")
}

// Symbol is a NEP-17 standard method that returns the token symbol.
func Symbol() string {
	return token.Symbol
}

// Decimals is a NEP-17 standard method that returns the token precision.
// Voting power is counted in indivisible units, so it is zero.
func Decimals() int {
	return token.Decimals
}

// TotalSupply is a NEP-17 standard method that returns the total amount of
// voting power in existence.
func TotalSupply() int {
	ctx := storage.GetReadOnlyContext()
	return getSupply(ctx)
}

// BalanceOf is a NEP-17 standard method that returns the voting power owned
// by the specified account. Owned power yields no votes until the owner
// delegates it, see Delegate.
func BalanceOf(account interop.Hash160) int {
	ctx := storage.GetReadOnlyContext()
	return getInt(ctx, accountKey(balancePrefix, account))
}

// DelegateOf returns the account the specified account currently delegates
// its voting power to. It returns null if the account has never delegated.
func DelegateOf(account interop.Hash160) interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	return getDelegate(ctx, account)
}

// NonceOf returns the next expected DelegateBySig nonce of the specified
// account.
func NonceOf(account interop.Hash160) int {
	ctx := storage.GetReadOnlyContext()
	return getInt(ctx, accountKey(noncePrefix, account))
}

// Mint creates the specified amount of voting power on the given account.
// It can be invoked only by committee.
//
// It produces Transfer notification with null sender and, if the account
// has a delegate, DelegateVotesChanged notification.
func Mint(to interop.Hash160, amount int) {
	common.CheckCommitteeWitness()

	if len(to) != interop.Hash160Len {
		panic(ErrNullAccount)
	}
	if amount < 0 {
		panic("negative amount")
	}

	ctx := storage.GetContext()

	storage.Put(ctx, supplyKey, common.AddVotes(getSupply(ctx), amount))

	toKey := accountKey(balancePrefix, to)
	storage.Put(ctx, toKey, common.AddVotes(getInt(ctx, toKey), amount))

	runtime.Notify("Transfer", interop.Hash160(nil), to, amount)

	moveDelegateVotes(ctx, nil, getDelegate(ctx, to), amount)
}

// Burn destroys the specified amount of voting power on the given account.
// It can be invoked only by committee.
//
// It produces Transfer notification with null receiver and, if the account
// has a delegate, DelegateVotesChanged notification.
func Burn(from interop.Hash160, amount int) {
	common.CheckCommitteeWitness()

	if len(from) != interop.Hash160Len {
		panic(ErrNullAccount)
	}
	if amount < 0 {
		panic("negative amount")
	}

	ctx := storage.GetContext()

	fromKey := accountKey(balancePrefix, from)
	balance := common.SubVotes(getInt(ctx, fromKey), amount)
	if balance == 0 {
		storage.Delete(ctx, fromKey)
	} else {
		storage.Put(ctx, fromKey, balance)
	}

	storage.Put(ctx, supplyKey, common.SubVotes(getSupply(ctx), amount))

	runtime.Notify("Transfer", from, interop.Hash160(nil), amount)

	moveDelegateVotes(ctx, getDelegate(ctx, from), nil, amount)
}

// Transfer is a NEP-17 standard method that moves voting power from one
// account to another. It can be invoked only by the sender, either directly
// or by a contract with the sender's address. The delegates of both sides
// keep following their delegators' balances: the moved amount leaves the
// sender's delegate history and enters the receiver's.
//
// It produces Transfer notification and up to two DelegateVotesChanged
// notifications.
func Transfer(from, to interop.Hash160, amount int, data any) bool {
	if len(from) != interop.Hash160Len || len(to) != interop.Hash160Len {
		panic(ErrNullAccount)
	}
	if amount < 0 {
		panic("negative amount")
	}

	if !isUsableAddress(from) {
		runtime.Log("transfer: sender witness check failed")
		return false
	}

	ctx := storage.GetContext()

	fromKey := accountKey(balancePrefix, from)
	balance := common.SubVotes(getInt(ctx, fromKey), amount)
	if balance == 0 {
		storage.Delete(ctx, fromKey)
	} else {
		storage.Put(ctx, fromKey, balance)
	}

	toKey := accountKey(balancePrefix, to)
	storage.Put(ctx, toKey, common.AddVotes(getInt(ctx, toKey), amount))

	runtime.Notify("Transfer", from, to, amount)

	moveDelegateVotes(ctx, getDelegate(ctx, from), getDelegate(ctx, to), amount)

	return true
}

// Delegate assigns the whole current and future balance of the delegator as
// votes of the delegatee. It can be invoked only by the delegator. An
// account's balance yields no votes until the account delegates, even to
// itself; delegation stays in force until replaced by another Delegate call.
//
// It produces DelegateChanged notification and up to two
// DelegateVotesChanged notifications.
func Delegate(delegator, delegatee interop.Hash160) {
	if len(delegator) != interop.Hash160Len || len(delegatee) != interop.Hash160Len {
		panic(ErrNullAccount)
	}

	common.CheckOwnerWitness(delegator)

	ctx := storage.GetContext()
	delegateTo(ctx, delegator, delegatee)
}

// DelegateBySig performs delegation on behalf of the account that signed
// the request off-chain, so the delegator itself does not have to send a
// transaction. The request consists of the delegatee, the signer's next
// nonce, an expiry time in milliseconds, the signer's compressed secp256r1
// public key and a signature matching that key. Gates are checked in
// order: signature, then nonce (consuming it), then expiry.
//
// It produces the same notifications as Delegate.
func DelegateBySig(delegatee interop.Hash160, nonce, expiry int, pub interop.PublicKey, signature interop.Signature) {
	if len(delegatee) != interop.Hash160Len {
		panic(ErrNullAccount)
	}
	if len(pub) != interop.PublicKeyCompressedLen || len(signature) != interop.SignatureLen {
		panic(ErrInvalidSignature)
	}

	msg := delegationMessage(delegatee, nonce, expiry)
	if !crypto.VerifyWithECDsa(msg, pub, signature, crypto.Secp256r1) {
		panic(ErrInvalidSignature)
	}

	signer := contract.CreateStandardAccount(pub)

	ctx := storage.GetContext()

	nonceKey := accountKey(noncePrefix, signer)
	if nonce != getInt(ctx, nonceKey) {
		panic(ErrInvalidNonce)
	}
	storage.Put(ctx, nonceKey, nonce+1)

	if runtime.GetTime() > expiry {
		panic(ErrSignatureExpired)
	}

	delegateTo(ctx, signer, delegatee)
}

// GetCurrentVotes returns the current voting power of the specified account.
func GetCurrentVotes(account interop.Hash160) int {
	ctx := storage.GetReadOnlyContext()
	return latestVotes(ctx, account)
}

// GetPriorVotes returns the voting power of the specified account as of the
// end of the given block. The block must be finalized, querying the current
// or a future block index panics with ErrFutureQuery.
func GetPriorVotes(account interop.Hash160, sequence int) int {
	if sequence >= ledger.CurrentIndex() {
		panic(ErrFutureQuery)
	}

	ctx := storage.GetReadOnlyContext()

	n := getInt(ctx, accountKey(countPrefix, account))
	if n == 0 {
		return 0
	}

	last := getCheckpoint(ctx, account, n-1)
	if last.FromSequence <= sequence {
		return last.Votes
	}

	if getCheckpoint(ctx, account, 0).FromSequence > sequence {
		return 0
	}

	// Binary search for the newest checkpoint not past the requested
	// sequence. The midpoint rounds up so that lower = center converges.
	lower := 0
	upper := n - 1
	for upper > lower {
		center := upper - (upper-lower)/2
		cp := getCheckpoint(ctx, account, center)
		if cp.FromSequence == sequence {
			return cp.Votes
		}
		if cp.FromSequence < sequence {
			lower = center
		} else {
			upper = center - 1
		}
	}

	return getCheckpoint(ctx, account, lower).Votes
}

// CheckpointCount returns the number of voting power snapshots recorded for
// the specified account.
func CheckpointCount(account interop.Hash160) int {
	ctx := storage.GetReadOnlyContext()
	return getInt(ctx, accountKey(countPrefix, account))
}

// GetCheckpoint returns the voting power snapshot of the specified account
// with the given index, 0 <= index < CheckpointCount.
func GetCheckpoint(account interop.Hash160, index int) Checkpoint {
	ctx := storage.GetReadOnlyContext()

	if index < 0 || index >= getInt(ctx, accountKey(countPrefix, account)) {
		panic("checkpoint index out of range")
	}

	return getCheckpoint(ctx, account, index)
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

// delegationMessage composes the byte string a delegation signer commits
// to. The domain prefix binds the signature to this deployment: the token
// name, the network magic and the contract address all have to match on
// replay, so a request signed for one network or contract is unusable on
// any other.
func delegationMessage(delegatee interop.Hash160, nonce, expiry int) []byte {
	domain := std.Serialize([]any{tokenName, runtime.GetNetwork(), runtime.GetExecutingScriptHash()})
	request := std.Serialize([]any{delegatee, nonce, expiry})
	return append(domain, request...)
}

func delegateTo(ctx storage.Context, delegator, delegatee interop.Hash160) {
	oldDelegate := getDelegate(ctx, delegator)

	storage.Put(ctx, accountKey(delegatePrefix, delegator), delegatee)
	runtime.Notify("DelegateChanged", delegator, oldDelegate, delegatee)

	moveDelegateVotes(ctx, oldDelegate, delegatee, getInt(ctx, accountKey(balancePrefix, delegator)))
}

// moveDelegateVotes subtracts amount from the voting power of from and adds
// it to the voting power of to, recording a checkpoint on each affected
// side. Null accounts mean power appears or disappears (mint, burn or a
// missing delegate).
func moveDelegateVotes(ctx storage.Context, from, to interop.Hash160, amount int) {
	if amount == 0 || from.Equals(to) {
		return
	}

	if len(from) == interop.Hash160Len {
		old := latestVotes(ctx, from)
		writeCheckpoint(ctx, from, old, common.SubVotes(old, amount))
	}

	if len(to) == interop.Hash160Len {
		old := latestVotes(ctx, to)
		writeCheckpoint(ctx, to, old, common.AddVotes(old, amount))
	}
}

// writeCheckpoint appends a voting power snapshot for the delegate at the
// current block. A repeated write within one block overwrites the last
// snapshot in place, only the net value as of the end of the block
// survives.
func writeCheckpoint(ctx storage.Context, delegate interop.Hash160, oldVotes, newVotes int) {
	seq := common.ToSequence(ledger.CurrentIndex())

	countKey := accountKey(countPrefix, delegate)
	n := getInt(ctx, countKey)

	if n > 0 {
		last := getCheckpoint(ctx, delegate, n-1)
		if last.FromSequence == seq {
			last.Votes = newVotes
			common.SetSerialized(ctx, checkpointKey(delegate, n-1), last)
			runtime.Notify("DelegateVotesChanged", delegate, oldVotes, newVotes)
			return
		}
	}

	common.SetSerialized(ctx, checkpointKey(delegate, n), Checkpoint{
		FromSequence: seq,
		Votes:        newVotes,
	})
	storage.Put(ctx, countKey, n+1)

	runtime.Notify("DelegateVotesChanged", delegate, oldVotes, newVotes)
}

// isUsableAddress checks if the sender is either a correct NEO address or SC address.
func isUsableAddress(addr interop.Hash160) bool {
	if len(addr) == interop.Hash160Len {
		if runtime.CheckWitness(addr) {
			return true
		}

		// Check if a smart contract is calling script hash
		callingScriptHash := runtime.GetCallingScriptHash()
		if callingScriptHash.Equals(addr) {
			return true
		}
	}

	return false
}

func accountKey(prefix byte, account interop.Hash160) []byte {
	return append([]byte{prefix}, account...)
}

func checkpointKey(account interop.Hash160, index int) []byte {
	key := append([]byte{checkpointPrefix}, account...)
	return append(key, convert.ToBytes(index)...)
}

func getInt(ctx storage.Context, key []byte) int {
	data := storage.Get(ctx, key)
	if data != nil {
		return data.(int)
	}

	return 0
}

func getSupply(ctx storage.Context) int {
	supply := storage.Get(ctx, supplyKey)
	if supply != nil {
		return supply.(int)
	}

	return 0
}

func getDelegate(ctx storage.Context, account interop.Hash160) interop.Hash160 {
	data := storage.Get(ctx, accountKey(delegatePrefix, account))
	if data != nil {
		return data.(interop.Hash160)
	}

	return nil
}

// latestVotes returns the current voting power of the account, that is, the
// value of its newest checkpoint, or 0 if the account has no history.
func latestVotes(ctx storage.Context, account interop.Hash160) int {
	n := getInt(ctx, accountKey(countPrefix, account))
	if n == 0 {
		return 0
	}

	return getCheckpoint(ctx, account, n-1).Votes
}

func getCheckpoint(ctx storage.Context, account interop.Hash160, index int) Checkpoint {
	data := storage.Get(ctx, checkpointKey(account, index))
	if data != nil {
		return std.Deserialize(data.([]byte)).(Checkpoint)
	}

	return Checkpoint{}
}
