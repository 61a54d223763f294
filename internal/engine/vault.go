package engine

import (
	"time"

	"github.com/efreitasn/escrowbook/internal/domain"
	"github.com/efreitasn/escrowbook/internal/store"
)

// Vault implements share-based custody: deposits mint proportional
// shares, withdrawals burn them, and per-user balances split into
// available and locked. Every mutation of one vault instance runs
// under that vault's mutex, so operations are strictly serialized.
//
// The lock/unlock/settle primitives are package-private: only the
// order ledger moves balances between available and locked.
type Vault struct {
	vaults *store.VaultStore
	wallet *store.WalletStore
	events *store.EventLog
}

// NewVault creates a Vault engine over the given stores.
func NewVault(vaults *store.VaultStore, wallet *store.WalletStore, events *store.EventLog) *Vault {
	return &Vault{
		vaults: vaults,
		wallet: wallet,
		events: events,
	}
}

// Initialize creates a vault owned by admin. The reference trader is
// informational only.
func (e *Vault) Initialize(admin, referenceTrader domain.Address) error {
	return e.vaults.Create(&domain.VaultAccount{
		Operator:        admin,
		ReferenceTrader: referenceTrader,
		IsActive:        true,
		Positions:       make(map[domain.Address]*domain.UserPosition),
		CreatedAt:       time.Now().UTC(),
	})
}

// mintShares computes the shares a deposit of amount buys at the
// vault's current share price. The first depositor mints 1:1; later
// deposits mint floor(amount * total_shares / total_deposits), which
// rounds in the vault's favor.
func mintShares(v *domain.VaultAccount, amount uint64) (uint64, error) {
	if v.TotalShares == 0 {
		return amount, nil
	}
	return domain.MulDiv(amount, v.TotalShares, v.TotalDeposits)
}

// Deposit moves amount from the user's wallet into vault custody and
// mints shares. The user's available balance grows by the full
// deposit amount.
func (e *Vault) Deposit(user, vault domain.Address, amount uint64) error {
	return e.credit(user, vault, amount, true)
}

// CreditDeposit applies deposit accounting without moving wallet
// funds; it is the entry point for funds that already arrived through
// an executed payment authorization. Only the vault operator may
// credit, and a physical transfer must never be credited twice.
func (e *Vault) CreditDeposit(facilitator, vault, user domain.Address, amount uint64) error {
	v, err := e.vaults.Get(vault)
	if err != nil {
		return err
	}
	if facilitator != v.Operator {
		return domain.ErrUnauthorized
	}
	return e.credit(user, vault, amount, false)
}

func (e *Vault) credit(user, vault domain.Address, amount uint64, moveFunds bool) error {
	v, err := e.vaults.Get(vault)
	if err != nil {
		return err
	}

	v.Mu.Lock()
	defer v.Mu.Unlock()

	if amount == 0 {
		return domain.ErrInvalidAmount
	}
	if !v.IsActive {
		return domain.ErrVaultInactive
	}

	shares, err := mintShares(v, amount)
	if err != nil {
		return err
	}

	pos := v.Position(user)
	newTotalDeposits, err := domain.CheckedAdd(v.TotalDeposits, amount)
	if err != nil {
		return err
	}
	newTotalShares, err := domain.CheckedAdd(v.TotalShares, shares)
	if err != nil {
		return err
	}
	newUserShares, err := domain.CheckedAdd(pos.Shares, shares)
	if err != nil {
		return err
	}
	newAvailable, err := domain.CheckedAdd(pos.AvailableBalance, amount)
	if err != nil {
		return err
	}

	// The wallet debit is the last fallible step, so a failed deposit
	// leaves both ledgers untouched.
	if moveFunds {
		if err := e.wallet.Debit(user, amount); err != nil {
			return err
		}
	}

	v.TotalDeposits = newTotalDeposits
	v.TotalShares = newTotalShares
	pos.Shares = newUserShares
	pos.AvailableBalance = newAvailable

	e.events.Append(domain.EventDeposited, domain.DepositedPayload{
		Vault:        vault.String(),
		User:         user.String(),
		Amount:       amount,
		SharesMinted: shares,
	})
	return nil
}

// Withdraw burns shares and returns their current value to the
// user's wallet. The value must be free: withdrawing funds locked
// under open orders fails with ErrInsufficientAvailable.
func (e *Vault) Withdraw(user, vault domain.Address, shares uint64) (uint64, error) {
	v, err := e.vaults.Get(vault)
	if err != nil {
		return 0, err
	}

	v.Mu.Lock()
	defer v.Mu.Unlock()

	if shares == 0 {
		return 0, domain.ErrInvalidAmount
	}
	pos := v.Position(user)
	if pos.Shares < shares {
		return 0, domain.ErrInsufficientShares
	}

	amount, err := domain.MulDiv(shares, v.TotalDeposits, v.TotalShares)
	if err != nil {
		return 0, err
	}
	if pos.AvailableBalance < amount {
		return 0, domain.ErrInsufficientAvailable
	}

	if err := e.wallet.Credit(user, amount); err != nil {
		return 0, err
	}

	v.TotalDeposits -= amount
	v.TotalShares -= shares
	pos.Shares -= shares
	pos.AvailableBalance -= amount

	e.events.Append(domain.EventWithdrawn, domain.WithdrawnPayload{
		Vault:        vault.String(),
		User:         user.String(),
		SharesBurned: shares,
		Amount:       amount,
	})
	return amount, nil
}

// lockBalance moves amount from the user's available balance to
// locked, reserving it for an open order.
func (e *Vault) lockBalance(vault, user domain.Address, amount uint64) error {
	v, err := e.vaults.Get(vault)
	if err != nil {
		return err
	}

	v.Mu.Lock()
	defer v.Mu.Unlock()

	pos := v.Position(user)
	if pos.AvailableBalance < amount {
		return domain.ErrInsufficientAvailable
	}
	newLocked, err := domain.CheckedAdd(pos.LockedBalance, amount)
	if err != nil {
		return err
	}
	pos.AvailableBalance -= amount
	pos.LockedBalance = newLocked
	return nil
}

// unlockBalance returns amount from locked back to the same user's
// available balance, releasing an order reservation.
func (e *Vault) unlockBalance(vault, user domain.Address, amount uint64) error {
	v, err := e.vaults.Get(vault)
	if err != nil {
		return err
	}

	v.Mu.Lock()
	defer v.Mu.Unlock()

	pos := v.Position(user)
	if pos.LockedBalance < amount {
		return domain.ErrInsufficientLocked
	}
	newAvailable, err := domain.CheckedAdd(pos.AvailableBalance, amount)
	if err != nil {
		return err
	}
	pos.LockedBalance -= amount
	pos.AvailableBalance = newAvailable
	return nil
}

// settleOrder moves amount from one user's locked balance to another
// user's available balance. This is the only path by which locked
// funds change owner.
func (e *Vault) settleOrder(vault, from, to domain.Address, amount uint64) error {
	v, err := e.vaults.Get(vault)
	if err != nil {
		return err
	}

	v.Mu.Lock()
	defer v.Mu.Unlock()

	return e.settleLocked(v, vault, from, to, amount)
}

// settleSwap applies two settlements in opposite directions as one
// unit: a's locked balance pays aToB to b, and b's locked balance
// pays bToA to a. Either both are visible or neither. Callers must
// not hold the vault's mutex.
func (e *Vault) settleSwap(vault, a, b domain.Address, aToB, bToA uint64) error {
	v, err := e.vaults.Get(vault)
	if err != nil {
		return err
	}

	v.Mu.Lock()
	defer v.Mu.Unlock()

	aPos := v.Position(a)
	bPos := v.Position(b)

	// Validate both legs before mutating either.
	if a == b {
		// Self-trade: the net effect is locked → available for one user.
		total, err := domain.CheckedAdd(aToB, bToA)
		if err != nil {
			return err
		}
		if aPos.LockedBalance < total {
			return domain.ErrInsufficientLocked
		}
		newAvailable, err := domain.CheckedAdd(aPos.AvailableBalance, total)
		if err != nil {
			return err
		}
		aPos.LockedBalance -= total
		aPos.AvailableBalance = newAvailable
	} else {
		if aPos.LockedBalance < aToB {
			return domain.ErrInsufficientLocked
		}
		if bPos.LockedBalance < bToA {
			return domain.ErrInsufficientLocked
		}
		newBAvailable, err := domain.CheckedAdd(bPos.AvailableBalance, aToB)
		if err != nil {
			return err
		}
		newAAvailable, err := domain.CheckedAdd(aPos.AvailableBalance, bToA)
		if err != nil {
			return err
		}
		aPos.LockedBalance -= aToB
		bPos.AvailableBalance = newBAvailable
		bPos.LockedBalance -= bToA
		aPos.AvailableBalance = newAAvailable
	}

	e.events.Append(domain.EventVaultTrade, domain.VaultTradePayload{
		Vault: vault.String(), From: a.String(), To: b.String(), Amount: aToB,
	})
	e.events.Append(domain.EventVaultTrade, domain.VaultTradePayload{
		Vault: vault.String(), From: b.String(), To: a.String(), Amount: bToA,
	})
	return nil
}

// settleLocked performs one settlement. Callers hold v.Mu.
func (e *Vault) settleLocked(v *domain.VaultAccount, vault, from, to domain.Address, amount uint64) error {
	fromPos := v.Position(from)
	if fromPos.LockedBalance < amount {
		return domain.ErrInsufficientLocked
	}
	toPos := v.Position(to)
	newAvailable, err := domain.CheckedAdd(toPos.AvailableBalance, amount)
	if err != nil {
		return err
	}
	fromPos.LockedBalance -= amount
	toPos.AvailableBalance = newAvailable

	e.events.Append(domain.EventVaultTrade, domain.VaultTradePayload{
		Vault: vault.String(), From: from.String(), To: to.String(), Amount: amount,
	})
	return nil
}

// Info returns a snapshot of the vault's aggregate state.
func (e *Vault) Info(vault domain.Address) (domain.VaultInfo, error) {
	v, err := e.vaults.Get(vault)
	if err != nil {
		return domain.VaultInfo{}, err
	}

	v.Mu.Lock()
	defer v.Mu.Unlock()

	return domain.VaultInfo{
		Operator:        v.Operator,
		ReferenceTrader: v.ReferenceTrader,
		TotalDeposits:   v.TotalDeposits,
		TotalShares:     v.TotalShares,
		IsActive:        v.IsActive,
		CreatedAt:       v.CreatedAt,
	}, nil
}

// UserShares returns the user's share count.
func (e *Vault) UserShares(vault, user domain.Address) (uint64, error) {
	v, err := e.vaults.Get(vault)
	if err != nil {
		return 0, err
	}

	v.Mu.Lock()
	defer v.Mu.Unlock()

	if pos, ok := v.Positions[user]; ok {
		return pos.Shares, nil
	}
	return 0, nil
}

// ShareValue values a share count at the current share price,
// rounding down. With no shares outstanding the price is 1:1.
func (e *Vault) ShareValue(vault domain.Address, shares uint64) (uint64, error) {
	v, err := e.vaults.Get(vault)
	if err != nil {
		return 0, err
	}

	v.Mu.Lock()
	defer v.Mu.Unlock()

	if v.TotalShares == 0 {
		return shares, nil
	}
	return domain.MulDiv(shares, v.TotalDeposits, v.TotalShares)
}

// Balances returns the user's available, locked, and total balance.
func (e *Vault) Balances(vault, user domain.Address) (available, locked, total uint64, err error) {
	v, err := e.vaults.Get(vault)
	if err != nil {
		return 0, 0, 0, err
	}

	v.Mu.Lock()
	defer v.Mu.Unlock()

	pos, ok := v.Positions[user]
	if !ok {
		return 0, 0, 0, nil
	}
	total, err = pos.TotalBalance()
	if err != nil {
		return 0, 0, 0, err
	}
	return pos.AvailableBalance, pos.LockedBalance, total, nil
}
