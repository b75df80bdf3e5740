package common

const (
	// ErrOverflow is thrown by checked arithmetic helpers when a result
	// does not fit into its width.
	ErrOverflow = "arithmetic overflow"
	// ErrUnderflow is thrown by checked arithmetic helpers when a
	// subtraction would go negative.
	ErrUnderflow = "arithmetic underflow"

	// maxSequence is the largest checkpoint sequence number, 2^32-1.
	maxSequence = 0xFFFFFFFF
)

// maxVotes is the largest amount of voting power, 2^96-1. The literal does
// not fit into a Go integer constant, so it is assembled at initialization.
var maxVotes int

func init() {
	h := 1 << 48
	maxVotes = h*h - 1
}

// AddVotes returns a+b. It panics with ErrUnderflow on a negative operand
// and with ErrOverflow if the sum does not fit into 96 bits. All voting
// power and balance increases must go through it.
func AddVotes(a, b int) int {
	if a < 0 || b < 0 {
		panic(ErrUnderflow)
	}
	c := a + b
	if c > maxVotes {
		panic(ErrOverflow)
	}
	return c
}

// SubVotes returns a-b. It panics with ErrUnderflow if b is negative or
// exceeds a. All voting power and balance decreases must go through it.
func SubVotes(a, b int) int {
	if b < 0 || b > a {
		panic(ErrUnderflow)
	}
	return a - b
}

// ToSequence checks that the given block index fits into 32 bits and
// returns it unchanged.
func ToSequence(index int) int {
	if index < 0 || index > maxSequence {
		panic(ErrOverflow)
	}
	return index
}
