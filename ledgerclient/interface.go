package ledgerclient

import (
	"context"
	"errors"
)

// ErrInsufficientBalance is returned by transfer calls when the engine
// account cannot cover the requested amount.
var ErrInsufficientBalance = errors.New("insufficient ledger balance")

// Ledger is the token ledger the reward engine pays out of. The engine never
// mints; every payout moves existing balance from the engine account.
type Ledger interface {
	// TotalSupply returns the fixed token supply.
	TotalSupply(ctx context.Context) (int64, error)

	// BalanceOf returns the native token balance of an address.
	BalanceOf(ctx context.Context, address string) (int64, error)

	// Transfer moves amount of the native token from the engine account to
	// the destination address.
	Transfer(ctx context.Context, to string, amount int64) error

	// TokenBalanceOf returns the engine's balance of an arbitrary token,
	// used by the emergency sweep.
	TokenBalanceOf(ctx context.Context, token string, address string) (int64, error)

	// TokenTransfer moves amount of an arbitrary token from the engine
	// account to the destination address.
	TokenTransfer(ctx context.Context, token string, to string, amount int64) error
}
