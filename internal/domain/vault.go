package domain

import (
	"sync"
	"time"
)

// UserPosition tracks one user's stake in a vault. LockedBalance only
// changes through the vault's lock/unlock/settle operations.
type UserPosition struct {
	Shares           uint64
	AvailableBalance uint64 // free for new orders or withdrawal
	LockedBalance    uint64 // committed to open orders
}

// TotalBalance returns available + locked. The sum never exceeds the
// value backing the user's shares.
func (p *UserPosition) TotalBalance() (uint64, error) {
	return CheckedAdd(p.AvailableBalance, p.LockedBalance)
}

// VaultAccount is the custody record for one vault instance, owned by
// the operator that initialized it. Positions are keyed by user
// address and created lazily on first deposit.
type VaultAccount struct {
	Operator        Address
	ReferenceTrader Address // informational
	TotalDeposits   uint64  // sum of all net inflows
	TotalShares     uint64  // sum of all minted shares
	IsActive        bool
	Positions       map[Address]*UserPosition
	CreatedAt       time.Time
	Mu              sync.Mutex // serializes every mutation of this vault
}

// Position returns the user's position, creating an empty one if the
// user has never interacted with the vault. Callers must hold Mu.
func (v *VaultAccount) Position(user Address) *UserPosition {
	p, ok := v.Positions[user]
	if !ok {
		p = &UserPosition{}
		v.Positions[user] = p
	}
	return p
}

// VaultInfo is a read-only snapshot of a vault's aggregate state.
type VaultInfo struct {
	Operator        Address
	ReferenceTrader Address
	TotalDeposits   uint64
	TotalShares     uint64
	IsActive        bool
	CreatedAt       time.Time
}
