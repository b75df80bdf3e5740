package tests

import (
	"math/big"
	"path"
	"testing"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	rpcvotes "github.com/nspcc-dev/votes-contract/rpc/votes"
	"github.com/stretchr/testify/require"
)

const votesPath = "../votes"

func deployVotesContract(t *testing.T, e *neotest.Executor) util.Uint160 {
	c := neotest.CompileFile(t, e.CommitteeHash, votesPath, path.Join(votesPath, "config.yml"))
	e.DeployContract(t, c, nil)
	return c.Hash
}

func newVotesInvoker(t *testing.T) (*neotest.Executor, *neotest.ContractInvoker, util.Uint160) {
	e := newExecutor(t)
	h := deployVotesContract(t, e)
	return e, e.CommitteeInvoker(h), h
}

func balanceOf(t *testing.T, c *neotest.ContractInvoker, acc util.Uint160) int64 {
	s, err := c.TestInvoke(t, "balanceOf", acc)
	require.NoError(t, err)
	return s.Pop().BigInt().Int64()
}

func totalSupply(t *testing.T, c *neotest.ContractInvoker) int64 {
	s, err := c.TestInvoke(t, "totalSupply")
	require.NoError(t, err)
	return s.Pop().BigInt().Int64()
}

func currentVotes(t *testing.T, c *neotest.ContractInvoker, acc util.Uint160) int64 {
	s, err := c.TestInvoke(t, "getCurrentVotes", acc)
	require.NoError(t, err)
	return s.Pop().BigInt().Int64()
}

func priorVotes(t *testing.T, c *neotest.ContractInvoker, acc util.Uint160, sequence int64) int64 {
	s, err := c.TestInvoke(t, "getPriorVotes", acc, sequence)
	require.NoError(t, err)
	return s.Pop().BigInt().Int64()
}

func nonceOf(t *testing.T, c *neotest.ContractInvoker, acc util.Uint160) int64 {
	s, err := c.TestInvoke(t, "nonceOf", acc)
	require.NoError(t, err)
	return s.Pop().BigInt().Int64()
}

func checkpointCount(t *testing.T, c *neotest.ContractInvoker, acc util.Uint160) int64 {
	s, err := c.TestInvoke(t, "checkpointCount", acc)
	require.NoError(t, err)
	return s.Pop().BigInt().Int64()
}

func checkpointAt(t *testing.T, c *neotest.ContractInvoker, acc util.Uint160, index int64) *rpcvotes.Checkpoint {
	s, err := c.TestInvoke(t, "getCheckpoint", acc, index)
	require.NoError(t, err)

	cp := new(rpcvotes.Checkpoint)
	require.NoError(t, cp.FromStackItem(s.Pop().Item()))
	return cp
}

// delegationRequest composes the byte string signed by a delegateBySig
// requester: serialized [name, magic, contract] domain followed by
// serialized [delegatee, nonce, expiry] body, the exact layout the contract
// rebuilds for verification.
func delegationRequest(t *testing.T, e *neotest.Executor, contractHash, delegatee util.Uint160, nonce, expiry int64) []byte {
	domain, err := stackitem.Serialize(stackitem.NewArray([]stackitem.Item{
		stackitem.Make("Votes"),
		stackitem.Make(int64(e.Chain.GetConfig().Magic)),
		stackitem.Make(contractHash.BytesBE()),
	}))
	require.NoError(t, err)

	request, err := stackitem.Serialize(stackitem.NewArray([]stackitem.Item{
		stackitem.Make(delegatee.BytesBE()),
		stackitem.Make(nonce),
		stackitem.Make(expiry),
	}))
	require.NoError(t, err)

	return append(domain, request...)
}

func TestVotes_TokenInfo(t *testing.T) {
	_, c, _ := newVotesInvoker(t)

	c.Invoke(t, stackitem.Make("VOTE"), "symbol")
	c.Invoke(t, stackitem.Make(0), "decimals")
	c.Invoke(t, stackitem.Make(0), "totalSupply")
}

func TestVotes_Mint(t *testing.T) {
	e, c, hash := newVotesInvoker(t)

	acc := c.NewAccount(t)
	accHash := acc.ScriptHash()

	cAcc := c.WithSigners(acc)
	cAcc.InvokeFail(t, "committee witness check failed", "mint", accHash, 100)

	c.InvokeFail(t, "null account", "mint", []byte{1, 2, 3}, 100)
	c.InvokeFail(t, "negative amount", "mint", accHash, -1)

	txHash := c.Invoke(t, stackitem.Null{}, "mint", accHash, 100)
	require.EqualValues(t, 100, balanceOf(t, c, accHash))
	require.EqualValues(t, 100, totalSupply(t, c))

	// The minting side of the NEP-17 notification is a null Hash160.
	e.CheckTxNotificationEvent(t, txHash, 0, state.NotificationEvent{
		ScriptHash: hash,
		Name:       "Transfer",
		Item: stackitem.NewArray([]stackitem.Item{
			stackitem.Null{},
			stackitem.Make(accHash.BytesBE()),
			stackitem.Make(100),
		}),
	})

	// Owned power yields no votes until delegated, even to oneself.
	require.EqualValues(t, 0, currentVotes(t, c, accHash))
	c.Invoke(t, stackitem.Null{}, "delegateOf", accHash)

	cAcc.Invoke(t, stackitem.Null{}, "delegate", accHash, accHash)
	require.EqualValues(t, 100, currentVotes(t, c, accHash))

	// Further mints follow the delegation.
	c.Invoke(t, stackitem.Null{}, "mint", accHash, 50)
	require.EqualValues(t, 150, currentVotes(t, c, accHash))
	require.EqualValues(t, 150, totalSupply(t, c))
}

func TestVotes_MintOverflow(t *testing.T) {
	_, c, _ := newVotesInvoker(t)

	maxAmount := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(1))

	acc1 := util.Uint160{1}
	acc2 := util.Uint160{2}

	c.Invoke(t, stackitem.Null{}, "mint", acc1, maxAmount)

	s, err := c.TestInvoke(t, "totalSupply")
	require.NoError(t, err)
	require.Zero(t, maxAmount.Cmp(s.Pop().BigInt()))

	c.InvokeFail(t, "arithmetic overflow", "mint", acc2, 1)

	// The failed mint must leave no trace.
	require.EqualValues(t, 0, balanceOf(t, c, acc2))
	s, err = c.TestInvoke(t, "totalSupply")
	require.NoError(t, err)
	require.Zero(t, maxAmount.Cmp(s.Pop().BigInt()))
}

func TestVotes_Burn(t *testing.T) {
	e, c, hash := newVotesInvoker(t)

	acc := c.NewAccount(t)
	accHash := acc.ScriptHash()
	cAcc := c.WithSigners(acc)

	c.Invoke(t, stackitem.Null{}, "mint", accHash, 100)
	cAcc.Invoke(t, stackitem.Null{}, "delegate", accHash, accHash)

	cAcc.InvokeFail(t, "committee witness check failed", "burn", accHash, 10)
	c.InvokeFail(t, "arithmetic underflow", "burn", accHash, 101)
	require.EqualValues(t, 100, balanceOf(t, c, accHash))

	txHash := c.Invoke(t, stackitem.Null{}, "burn", accHash, 40)
	e.CheckTxNotificationEvent(t, txHash, 0, state.NotificationEvent{
		ScriptHash: hash,
		Name:       "Transfer",
		Item: stackitem.NewArray([]stackitem.Item{
			stackitem.Make(accHash.BytesBE()),
			stackitem.Null{},
			stackitem.Make(40),
		}),
	})
	require.EqualValues(t, 60, balanceOf(t, c, accHash))
	require.EqualValues(t, 60, totalSupply(t, c))
	require.EqualValues(t, 60, currentVotes(t, c, accHash))

	c.Invoke(t, stackitem.Null{}, "burn", accHash, 60)
	require.EqualValues(t, 0, balanceOf(t, c, accHash))
	require.EqualValues(t, 0, totalSupply(t, c))
	require.EqualValues(t, 0, currentVotes(t, c, accHash))
}

func TestVotes_Transfer(t *testing.T) {
	_, c, _ := newVotesInvoker(t)

	accFrom := c.NewAccount(t)
	accTo := c.NewAccount(t)
	from := accFrom.ScriptHash()
	to := accTo.ScriptHash()

	d1 := util.Uint160{0xd1}
	d2 := util.Uint160{0xd2}

	c.Invoke(t, stackitem.Null{}, "mint", from, 100)

	// No witness of the sender: NEP-17 false, no state change.
	c.Invoke(t, stackitem.NewBool(false), "transfer", from, to, 10, nil)
	require.EqualValues(t, 100, balanceOf(t, c, from))

	cFrom := c.WithSigners(accFrom)
	cTo := c.WithSigners(accTo)

	cFrom.InvokeFail(t, "negative amount", "transfer", from, to, -5, nil)
	cFrom.InvokeFail(t, "arithmetic underflow", "transfer", from, to, 1000, nil)

	cFrom.Invoke(t, stackitem.NewBool(true), "transfer", from, to, 10, nil)
	require.EqualValues(t, 90, balanceOf(t, c, from))
	require.EqualValues(t, 10, balanceOf(t, c, to))
	require.EqualValues(t, 100, totalSupply(t, c))

	// Self-transfer is a nop.
	cFrom.Invoke(t, stackitem.NewBool(true), "transfer", from, from, 25, nil)
	require.EqualValues(t, 90, balanceOf(t, c, from))

	// Both sides' delegates follow the moved balance.
	cFrom.Invoke(t, stackitem.Null{}, "delegate", from, d1)
	cTo.Invoke(t, stackitem.Null{}, "delegate", to, d2)
	require.EqualValues(t, 90, currentVotes(t, c, d1))
	require.EqualValues(t, 10, currentVotes(t, c, d2))

	cFrom.Invoke(t, stackitem.NewBool(true), "transfer", from, to, 20, nil)
	require.EqualValues(t, 70, balanceOf(t, c, from))
	require.EqualValues(t, 30, balanceOf(t, c, to))
	require.EqualValues(t, 70, currentVotes(t, c, d1))
	require.EqualValues(t, 30, currentVotes(t, c, d2))
	require.EqualValues(t, totalSupply(t, c), balanceOf(t, c, from)+balanceOf(t, c, to))
}

func TestVotes_Delegate(t *testing.T) {
	e, c, hash := newVotesInvoker(t)

	acc := c.NewAccount(t)
	accHash := acc.ScriptHash()
	cAcc := c.WithSigners(acc)

	d1 := util.Uint160{0xd1}
	d2 := util.Uint160{0xd2}

	c.Invoke(t, stackitem.Null{}, "mint", accHash, 100)

	// Only the delegator may reassign its voting power.
	c.InvokeFail(t, "owner witness check failed", "delegate", accHash, d1)
	cAcc.InvokeFail(t, "null account", "delegate", accHash, []byte{1, 2, 3})

	txHash := cAcc.Invoke(t, stackitem.Null{}, "delegate", accHash, d1)
	e.CheckTxNotificationEvent(t, txHash, 0, state.NotificationEvent{
		ScriptHash: hash,
		Name:       "DelegateChanged",
		Item: stackitem.NewArray([]stackitem.Item{
			stackitem.Make(accHash.BytesBE()),
			stackitem.Null{},
			stackitem.Make(d1.BytesBE()),
		}),
	})
	e.CheckTxNotificationEvent(t, txHash, 1, state.NotificationEvent{
		ScriptHash: hash,
		Name:       "DelegateVotesChanged",
		Item: stackitem.NewArray([]stackitem.Item{
			stackitem.Make(d1.BytesBE()),
			stackitem.Make(0),
			stackitem.Make(100),
		}),
	})

	c.Invoke(t, stackitem.NewBuffer(d1.BytesBE()), "delegateOf", accHash)
	require.EqualValues(t, 100, currentVotes(t, c, d1))
	require.EqualValues(t, 0, currentVotes(t, c, accHash))

	// Re-delegation moves the whole weight between histories.
	cAcc.Invoke(t, stackitem.Null{}, "delegate", accHash, d2)
	require.EqualValues(t, 0, currentVotes(t, c, d1))
	require.EqualValues(t, 100, currentVotes(t, c, d2))
	require.EqualValues(t, 2, checkpointCount(t, c, d1))
	require.EqualValues(t, 1, checkpointCount(t, c, d2))

	// Repeating the same delegation changes nothing.
	cAcc.Invoke(t, stackitem.Null{}, "delegate", accHash, d2)
	require.EqualValues(t, 1, checkpointCount(t, c, d2))
}

func TestVotes_PriorVotes(t *testing.T) {
	e, c, _ := newVotesInvoker(t)

	acc := c.NewAccount(t)
	accHash := acc.ScriptHash()
	cAcc := c.WithSigners(acc)

	// No history at all.
	require.EqualValues(t, 0, priorVotes(t, c, accHash, 0))

	cAcc.Invoke(t, stackitem.Null{}, "delegate", accHash, accHash)

	c.Invoke(t, stackitem.Null{}, "mint", accHash, 5)
	e.AddNewBlock(t)
	e.AddNewBlock(t)

	c.Invoke(t, stackitem.Null{}, "mint", accHash, 7)
	e.AddNewBlock(t)
	e.AddNewBlock(t)

	c.Invoke(t, stackitem.Null{}, "mint", accHash, 18)
	e.AddNewBlock(t)
	e.AddNewBlock(t)

	require.EqualValues(t, 3, checkpointCount(t, c, accHash))

	cp0 := checkpointAt(t, c, accHash, 0)
	cp1 := checkpointAt(t, c, accHash, 1)
	cp2 := checkpointAt(t, c, accHash, 2)

	require.EqualValues(t, 5, cp0.Votes.Int64())
	require.EqualValues(t, 12, cp1.Votes.Int64())
	require.EqualValues(t, 30, cp2.Votes.Int64())

	s0 := cp0.FromSequence.Int64()
	s1 := cp1.FromSequence.Int64()
	s2 := cp2.FromSequence.Int64()
	require.Less(t, s0, s1)
	require.Less(t, s1, s2)

	// Before the first checkpoint.
	require.EqualValues(t, 0, priorVotes(t, c, accHash, s0-1))

	// Exact checkpoint sequences and the gaps between them.
	require.EqualValues(t, 5, priorVotes(t, c, accHash, s0))
	require.EqualValues(t, 5, priorVotes(t, c, accHash, s0+1))
	require.EqualValues(t, 12, priorVotes(t, c, accHash, s1))
	require.EqualValues(t, 12, priorVotes(t, c, accHash, s1+1))
	require.EqualValues(t, 30, priorVotes(t, c, accHash, s2))

	// Unfinalized sequences are unanswerable.
	h := int64(e.Chain.BlockHeight())
	c.InvokeFail(t, "sequence not yet finalized", "getPriorVotes", accHash, h+1)
	c.InvokeFail(t, "sequence not yet finalized", "getPriorVotes", accHash, h+100)
}

func TestVotes_SameBlockCoalescing(t *testing.T) {
	e, c, _ := newVotesInvoker(t)

	acc := c.NewAccount(t)
	accHash := acc.ScriptHash()
	cAcc := c.WithSigners(acc)

	cAcc.Invoke(t, stackitem.Null{}, "delegate", accHash, accHash)
	c.Invoke(t, stackitem.Null{}, "mint", accHash, 100)

	n := checkpointCount(t, c, accHash)

	tx1 := c.PrepareInvoke(t, "mint", accHash, 10)
	tx2 := c.PrepareInvoke(t, "mint", accHash, 20)
	e.AddNewBlock(t, tx1, tx2)
	e.CheckHalt(t, tx1.Hash(), stackitem.Null{})
	e.CheckHalt(t, tx2.Hash(), stackitem.Null{})

	// Both writes landed in one block, so only one net snapshot remains.
	require.EqualValues(t, n+1, checkpointCount(t, c, accHash))
	require.EqualValues(t, 130, currentVotes(t, c, accHash))

	last := checkpointAt(t, c, accHash, n)
	require.EqualValues(t, 130, last.Votes.Int64())

	e.AddNewBlock(t)
	e.AddNewBlock(t)
	require.EqualValues(t, 100, priorVotes(t, c, accHash, last.FromSequence.Int64()-1))
	require.EqualValues(t, 130, priorVotes(t, c, accHash, last.FromSequence.Int64()))
}

func TestVotes_DelegateBySig(t *testing.T) {
	e, c, hash := newVotesInvoker(t)

	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	pub := priv.PublicKey().Bytes()
	signer := priv.GetScriptHash()

	d := util.Uint160{0xd1}
	expiry := time.Now().Add(time.Hour).UnixMilli()

	c.Invoke(t, stackitem.Null{}, "mint", signer, 100)

	t.Run("invalid signature", func(t *testing.T) {
		msg := delegationRequest(t, e, hash, d, 0, expiry)
		sig := priv.Sign(msg)

		c.InvokeFail(t, "invalid delegation signature", "delegateBySig", d, 0, expiry, pub[:10], sig)
		c.InvokeFail(t, "invalid delegation signature", "delegateBySig", d, 0, expiry, pub, sig[:32])
		c.InvokeFail(t, "invalid delegation signature", "delegateBySig", d, 0, expiry, pub, make([]byte, 64))

		// Signed for another delegatee.
		c.InvokeFail(t, "invalid delegation signature", "delegateBySig", util.Uint160{0xd2}, 0, expiry, pub, sig)
	})

	t.Run("happy path", func(t *testing.T) {
		msg := delegationRequest(t, e, hash, d, 0, expiry)
		sig := priv.Sign(msg)

		// Anyone can relay the signed request, the committee does here.
		c.Invoke(t, stackitem.Null{}, "delegateBySig", d, 0, expiry, pub, sig)

		c.Invoke(t, stackitem.NewBuffer(d.BytesBE()), "delegateOf", signer)
		require.EqualValues(t, 100, currentVotes(t, c, d))
		require.EqualValues(t, 1, nonceOf(t, c, signer))

		// Replay of the very same request.
		c.InvokeFail(t, "invalid delegation nonce", "delegateBySig", d, 0, expiry, pub, sig)
	})

	t.Run("wrong nonce", func(t *testing.T) {
		msg := delegationRequest(t, e, hash, d, 5, expiry)
		sig := priv.Sign(msg)

		c.InvokeFail(t, "invalid delegation nonce", "delegateBySig", d, 5, expiry, pub, sig)
	})

	t.Run("expired", func(t *testing.T) {
		msg := delegationRequest(t, e, hash, d, 1, 1)
		sig := priv.Sign(msg)

		c.InvokeFail(t, "delegation signature expired", "delegateBySig", d, 1, 1, pub, sig)

		// The fault must not have consumed the nonce.
		require.EqualValues(t, 1, nonceOf(t, c, signer))
	})
}

func TestVotes_Update(t *testing.T) {
	_, c, _ := newVotesInvoker(t)

	acc := c.NewAccount(t)
	cAcc := c.WithSigners(acc)

	cAcc.InvokeFail(t, "only committee can update contract", "update",
		[]byte{}, []byte{}, nil)
}
