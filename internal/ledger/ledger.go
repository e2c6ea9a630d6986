// Package ledger implements Ledger (spec §4.F): the credit/usage
// accounting component every paid operation (upload, transcription,
// summary generation, email) charges through before it's allowed to
// run. Costs are computed with math/big so charges for the same
// quantity are bit-for-bit reproducible across runs and platforms.
package ledger

import (
	"context"
	"math/big"
	"strconv"
	"time"

	"voicecore/internal/apperr"
	"voicecore/internal/models"
	"voicecore/internal/repository"
)

// Rate names the billable operations and their per-unit USD cost. Values
// mirror the fixed table in spec §4.F; nothing here is configurable at
// runtime, since a live rate change mid-charge would break auditability.
type Rate struct {
	Service   string
	Operation string
	Unit      string
	PerUnit   *big.Float
}

func mustRate(v float64) *big.Float {
	return big.NewFloat(v).SetPrec(64)
}

// Rate table per spec §4.F. Every service/operation pair the core can
// bill for has one entry here; components reference these vars rather
// than re-deriving a rate.
var (
	RateUpload           = Rate{Service: "object_storage", Operation: "upload", Unit: "gb", PerUnit: mustRate(0.023)}
	RateStored           = Rate{Service: "object_storage", Operation: "stored", Unit: "gb_month", PerUnit: mustRate(0.023)}
	RateKVRead           = Rate{Service: "kv_store", Operation: "read", Unit: "million_units", PerUnit: mustRate(0.25)}
	RateKVWrite          = Rate{Service: "kv_store", Operation: "write", Unit: "million_units", PerUnit: mustRate(1.25)}
	RateMail             = Rate{Service: "mailer", Operation: "send", Unit: "thousand_messages", PerUnit: mustRate(0.10)}
	RateKeyVaultStored   = Rate{Service: "keyvault", Operation: "stored", Unit: "secret_month", PerUnit: mustRate(0.40)}
	RateKeyVaultRetrieve = Rate{Service: "keyvault", Operation: "retrieve", Unit: "secret", PerUnit: mustRate(0.05)}
	RateTranscribe       = Rate{Service: "speech", Operation: "transcribe", Unit: "minute", PerUnit: mustRate(0.006)}
	RateSummarizeInput   = Rate{Service: "summary", Operation: "llm_input", Unit: "thousand_tokens", PerUnit: mustRate(0.003)}
	RateSummarizeOutput  = Rate{Service: "summary", Operation: "llm_output", Unit: "thousand_tokens", PerUnit: mustRate(0.006)}
)

type Service struct {
	repo *repository.LedgerRepository
}

func New(repo *repository.LedgerRepository) *Service {
	return &Service{repo: repo}
}

// HasCredit reports whether userID's account balance is strictly
// positive, per spec §4.F — the gate every job must pass before new
// work starts. Charge itself never fails on a negative balance; only
// HasCredit stops new work from beginning.
func (s *Service) HasCredit(ctx context.Context, userID string) (bool, error) {
	acct, err := s.repo.EnsureAccount(ctx, userID)
	if err != nil {
		return false, apperr.New(apperr.Unavailable, "failed to load credit account", err)
	}
	return acct.BalanceUSD > 0, nil
}

// Charge debits userID for quantity units of rate, computing cost with
// round-half-even to six decimal places, then appends the append-only
// UsageRecord. Per spec §4.F this never fails on an insufficient
// balance — only HasCredit gates whether new work may start; a charge
// for already-committed work always lands, even if it drives the
// balance negative. Retries the conditional debit exactly once on a
// concurrent-write conflict (spec §5) before giving up with
// apperr.Conflict.
func (s *Service) Charge(ctx context.Context, userID string, rate Rate, quantity float64) (float64, error) {
	cost := computeCost(rate.PerUnit, quantity)

	for attempt := 0; attempt < 2; attempt++ {
		acct, err := s.repo.EnsureAccount(ctx, userID)
		if err != nil {
			return 0, apperr.New(apperr.Unavailable, "failed to load credit account", err)
		}

		ok, err := s.repo.Debit(ctx, userID, acct.BalanceUSD, cost)
		if err != nil {
			return 0, apperr.New(apperr.Unavailable, "failed to debit account", err)
		}
		if ok {
			now := time.Now().UTC()
			usage := &models.UsageRecord{
				UserID:     userID,
				Service:    rate.Service,
				Operation:  rate.Operation,
				Quantity:   quantity,
				Unit:       rate.Unit,
				CostUSD:    cost,
				OccurredAt: now,
				Month:      now.Format("2006-01"),
			}
			if err := s.repo.RecordUsage(ctx, usage); err != nil {
				return 0, apperr.New(apperr.Unavailable, "failed to record usage", err)
			}
			return cost, nil
		}
		// Balance changed under us between read and write; retry once
		// with a fresh read before surfacing a conflict to the caller.
	}
	return 0, apperr.New(apperr.Conflict, "credit debit conflict after retry", nil)
}

// Grant adds amount to userID's balance (manual top-up / admin credit).
func (s *Service) Grant(ctx context.Context, userID string, amount float64) error {
	if _, err := s.repo.EnsureAccount(ctx, userID); err != nil {
		return apperr.New(apperr.Unavailable, "failed to load credit account", err)
	}
	if err := s.repo.Grant(ctx, userID, amount); err != nil {
		return apperr.New(apperr.Unavailable, "failed to grant credit", err)
	}
	return nil
}

// Summary returns the current balance plus lifetime totals for GET /credit.
func (s *Service) Summary(ctx context.Context, userID string) (*models.CreditAccount, error) {
	acct, err := s.repo.EnsureAccount(ctx, userID)
	if err != nil {
		return nil, apperr.New(apperr.Unavailable, "failed to load credit account", err)
	}
	return acct, nil
}

// MonthlyCost returns total cost charged to userID in the given
// YYYY-MM month, for GET /costs.
func (s *Service) MonthlyCost(ctx context.Context, userID, month string) (float64, error) {
	total, err := s.repo.SumUsageForMonth(ctx, userID, month)
	if err != nil {
		return 0, apperr.New(apperr.Unavailable, "failed to sum usage", err)
	}
	return total, nil
}

// decimalScale is 10^6: spec §4.F fixes cost rounding at six decimal
// places so components agree bit-for-bit on small per-unit charges
// (e.g. a 15s transcription costs $0.0015, which two-decimal rounding
// would silently zero out).
var decimalScale = big.NewFloat(1000000)

// computeCost multiplies perUnit by quantity and rounds to six decimal
// places using round-half-even. The rate and quantity are taken at
// their shortest decimal form and multiplied as exact rationals, so a
// product that is a tie in decimal (1.5 * 0.000001) is seen as an exact
// tie rather than as the nearest binary float on either side of it.
func computeCost(perUnit *big.Float, quantity float64) float64 {
	rate, _ := new(big.Rat).SetString(perUnit.Text('g', 15))
	q, _ := new(big.Rat).SetString(strconv.FormatFloat(quantity, 'g', -1, 64))
	product := new(big.Rat).Mul(rate, q)

	scaled := new(big.Rat).Mul(product, big.NewRat(1000000, 1))
	rounded := roundHalfEven(new(big.Float).SetPrec(128).SetRat(scaled))
	result := new(big.Float).SetPrec(64).Quo(rounded, decimalScale)

	f, _ := result.Float64()
	return f
}

// roundHalfEven rounds x to the nearest integer, breaking exact ties
// toward the nearest even integer (banker's rounding), matching the
// behavior of IEEE 754 round-to-nearest-even used by most ledger
// systems to avoid systematic upward drift.
func roundHalfEven(x *big.Float) *big.Float {
	intPart, frac := splitIntFrac(x)
	half := big.NewFloat(0.5)

	cmp := frac.Cmp(half)
	switch {
	case cmp < 0:
		return intPart
	case cmp > 0:
		return new(big.Float).SetPrec(64).Add(intPart, big.NewFloat(1))
	default:
		// Exactly .5: round to even.
		intVal, _ := intPart.Int(nil)
		if intVal.Bit(0) == 0 {
			return intPart
		}
		return new(big.Float).SetPrec(64).Add(intPart, big.NewFloat(1))
	}
}

func splitIntFrac(x *big.Float) (intPart, frac *big.Float) {
	i, _ := x.Int(nil)
	intPart = new(big.Float).SetPrec(64).SetInt(i)
	frac = new(big.Float).SetPrec(64).Sub(x, intPart)
	if frac.Sign() < 0 {
		frac.Neg(frac)
	}
	return intPart, frac
}
