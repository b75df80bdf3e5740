/*
Votes contract keeps a checkpointed ledger of delegated voting power.

The contract is a NEP-17 compatible token whose balances represent owned
voting power. Owned power yields no votes by itself: an account first has to
delegate it, either to another account or explicitly to itself. From that
point the delegate's voting power follows every balance change of the
delegator, and each change is recorded as a checkpoint bound to the block it
happened in. Checkpoint histories are append-only and per-account, which
makes the voting power of any account at any finalized block answerable with
a binary search (getPriorVotes) no matter how long ago that block was.

Voting power is created and destroyed only by the committee (mint, burn).
Transfers move power between owners with both sides' delegates adjusted
automatically. Delegation can also be authorized off-chain: delegateBySig
accepts a request signed with the delegator's secp256r1 key, checked against
a per-signer nonce and an expiry time, so the delegator does not need to
send a transaction of their own.

All amounts are bounded by 96 bits and checkpoint sequence numbers by 32
bits; any operation that would step outside these bounds fails and changes
nothing.

# Contract notifications

Transfer notification. This is a NEP-17 standard notification. Minting
emits it with null from, burning with null to.

	Transfer:
	  - name: from
	    type: Hash160
	  - name: to
	    type: Hash160
	  - name: amount
	    type: Integer

DelegateChanged notification. This notification is produced when an account
assigns its voting power to a (possibly new) delegate, directly or by
signature. from is null on first delegation.

	DelegateChanged:
	  - name: delegator
	    type: Hash160
	  - name: from
	    type: Hash160
	  - name: to
	    type: Hash160

DelegateVotesChanged notification. This notification is produced every time
a delegate's voting power changes, that is, whenever a checkpoint is written
or overwritten.

	DelegateVotesChanged:
	  - name: delegate
	    type: Hash160
	  - name: oldVotes
	    type: Integer
	  - name: newVotes
	    type: Integer
*/
package votes
