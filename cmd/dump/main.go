package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// Storage layout of the Votes contract, see votes/votes_contract.go.
const (
	balancePrefix    = 'b'
	checkpointPrefix = 'c'
	delegatePrefix   = 'd'
	noncePrefix      = 'k'
	countPrefix      = 'n'

	supplyKey = "supply"
)

func main() {
	neoRPCEndpoint := flag.String("rpc", "", "Network address of the Neo RPC server")
	contractFlag := flag.String("contract", "", "Votes contract account (LE script hash or Neo address)")

	flag.Parse()

	switch {
	case *neoRPCEndpoint == "":
		log.Fatal("missing Neo RPC endpoint")
	case *contractFlag == "":
		log.Fatal("missing contract account")
	}

	contractAcc, err := parseContractAccount(*contractFlag)
	if err != nil {
		log.Fatal(fmt.Errorf("parse contract account: %w", err))
	}

	b, err := newRemoteBlockChain(*neoRPCEndpoint)
	if err != nil {
		log.Fatal(fmt.Errorf("init remote blockchain: %w", err))
	}

	defer b.close()

	err = b.iterateContractStorage(contractAcc, printStorageItem)
	if err != nil {
		log.Fatal(fmt.Errorf("iterate contract storage: %w", err))
	}

	log.Printf("Votes contract storage at block #%d is dumped\n", b.currentBlock)
}

func parseContractAccount(s string) (util.Uint160, error) {
	h, err := util.Uint160DecodeStringLE(s)
	if err == nil {
		return h, nil
	}

	return address.StringToUint160(s)
}

func printStorageItem(key, value []byte) error {
	if string(key) == supplyKey {
		fmt.Printf("total supply: %s\n", bigint.FromBytes(value))
		return nil
	}

	if len(key) < 1+util.Uint160Size {
		return fmt.Errorf("unexpected storage key %x", key)
	}

	acc, err := util.Uint160DecodeBytesBE(key[1 : 1+util.Uint160Size])
	if err != nil {
		return fmt.Errorf("decode account from storage key %x: %w", key, err)
	}

	switch key[0] {
	case balancePrefix:
		fmt.Printf("balance of %s: %s\n", address.Uint160ToString(acc), bigint.FromBytes(value))
	case delegatePrefix:
		delegate, err := util.Uint160DecodeBytesBE(value)
		if err != nil {
			return fmt.Errorf("decode delegate of %s: %w", address.Uint160ToString(acc), err)
		}

		fmt.Printf("delegate of %s: %s\n", address.Uint160ToString(acc), address.Uint160ToString(delegate))
	case noncePrefix:
		fmt.Printf("nonce of %s: %s\n", address.Uint160ToString(acc), bigint.FromBytes(value))
	case countPrefix:
		fmt.Printf("checkpoint count of %s: %s\n", address.Uint160ToString(acc), bigint.FromBytes(value))
	case checkpointPrefix:
		index := bigint.FromBytes(key[1+util.Uint160Size:])

		item, err := stackitem.Deserialize(value)
		if err != nil {
			return fmt.Errorf("decode checkpoint #%s of %s: %w", index, address.Uint160ToString(acc), err)
		}

		fields, ok := item.Value().([]stackitem.Item)
		if !ok || len(fields) != 2 {
			return fmt.Errorf("unexpected checkpoint #%s structure of %s", index, address.Uint160ToString(acc))
		}

		seq, err := fields[0].TryInteger()
		if err != nil {
			return fmt.Errorf("decode checkpoint #%s sequence of %s: %w", index, address.Uint160ToString(acc), err)
		}

		votes, err := fields[1].TryInteger()
		if err != nil {
			return fmt.Errorf("decode checkpoint #%s votes of %s: %w", index, address.Uint160ToString(acc), err)
		}

		fmt.Printf("checkpoint #%s of %s: %s votes since block #%s\n",
			index, address.Uint160ToString(acc), votes, seq)
	default:
		fmt.Printf("unknown storage item %x: %x\n", key, value)
	}

	return nil
}
