package formance

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"ecobottle-ledger-go/internal/store"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Numscript templates. All metadata is set inside the script via set_tx_meta()
// so the Formance transaction is fully self-describing.
// ---------------------------------------------------------------------------

const numscriptMint = `vars {
  asset $asset
  number $amount
  account $user_id
  string $audit_tag
}

send [$asset $amount] (
  source = @world
  destination = @users:$user_id
)

set_tx_meta("event_type", "reward_mint")
set_tx_meta("audit_tag", $audit_tag)
`

const numscriptBurn = `vars {
  asset $asset
  number $amount
  account $user_id
  string $audit_tag
}

send [$asset $amount] (
  source = @users:$user_id
  destination = @world
)

set_tx_meta("event_type", "redemption_burn")
set_tx_meta("audit_tag", $audit_tag)
`

// Mint credits freshly issued ECOC from @world to the user's account.
// The reference makes retries idempotent: a duplicate reference is rejected
// by the stack with a CONFLICT.
func (s *Service) Mint(ctx context.Context, toUser string, amount uint64, reference string) error {
	// The stack rejects zero-amount postings, and a zero mint moves nothing,
	// so it is skipped rather than recorded.
	if amount == 0 {
		zap.L().Debug("Skipping zero-amount mint", zap.String("user_id", toUser))
		return nil
	}

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: s.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: strPtr(reference),
			Script: &shared.V2PostTransactionScript{
				Plain: numscriptMint,
				Vars: map[string]string{
					"asset":     ecocAsset,
					"amount":    strconv.FormatUint(amount, 10),
					"user_id":   toUser,
					"audit_tag": reference,
				},
			},
		},
	})
	if err != nil {
		if isConflictError(err) {
			return fmt.Errorf("%w: reference %s already exists", store.ErrDuplicateTransaction, reference)
		}
		return fmt.Errorf("error minting tokens: %w", err)
	}

	zap.L().Info("Tokens minted in Formance",
		zap.String("user_id", toUser),
		zap.Uint64("amount", amount),
		zap.String("reference", reference))
	return nil
}

// Burn debits amount from the user's account back to @world. The posting has
// no overdraft allowance, so the stack rejects a burn beyond the user's
// balance with INSUFFICIENT_FUND.
func (s *Service) Burn(ctx context.Context, fromUser string, amount uint64, reference string) error {
	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: s.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: strPtr(reference),
			Script: &shared.V2PostTransactionScript{
				Plain: numscriptBurn,
				Vars: map[string]string{
					"asset":     ecocAsset,
					"amount":    strconv.FormatUint(amount, 10),
					"user_id":   fromUser,
					"audit_tag": reference,
				},
			},
		},
	})
	if err != nil {
		if isConflictError(err) {
			return fmt.Errorf("%w: reference %s already exists", store.ErrDuplicateTransaction, reference)
		}
		if isInsufficientFundError(err) {
			return fmt.Errorf("%w: user %s", store.ErrInsufficientBalance, fromUser)
		}
		return fmt.Errorf("error burning tokens: %w", err)
	}

	zap.L().Info("Tokens burned in Formance",
		zap.String("user_id", fromUser),
		zap.Uint64("amount", amount),
		zap.String("reference", reference))
	return nil
}

// BalanceOf returns the user's current ECOC balance.
// Queries the single users:{userId} account directly.
func (s *Service) BalanceOf(ctx context.Context, user string) (uint64, error) {
	zap.L().Debug("Getting token balance from Formance", zap.String("user_id", user))

	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: "users:" + user,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get account volumes: %w", err)
	}

	bal := volumeBalance(resp.V2AccountResponse.Data.Volumes, ecocAsset)
	if bal == nil || bal.Sign() == 0 {
		return 0, nil
	}
	if bal.Sign() < 0 || !bal.IsUint64() {
		return 0, fmt.Errorf("unexpected ECOC balance for user %s: %s", user, bal.String())
	}
	return bal.Uint64(), nil
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}
