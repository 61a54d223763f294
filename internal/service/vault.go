package service

import (
	"github.com/efreitasn/escrowbook/internal/domain"
	"github.com/efreitasn/escrowbook/internal/engine"
	"github.com/efreitasn/escrowbook/internal/store"
)

// VaultService validates vault requests and hands them to the vault
// engine. It also owns the wallet funding entry point.
type VaultService struct {
	vault  *engine.Vault
	wallet *store.WalletStore

	// fundingAdmin, when set, is the only caller allowed to seed
	// wallet balances. Unset means funding is open (dev mode).
	fundingAdmin    domain.Address
	hasFundingAdmin bool
}

// NewVaultService creates a new VaultService. fundingAdmin may be
// empty to leave wallet funding ungated.
func NewVaultService(vault *engine.Vault, wallet *store.WalletStore, fundingAdmin string) (*VaultService, error) {
	s := &VaultService{vault: vault, wallet: wallet}
	if fundingAdmin != "" {
		addr, err := domain.ParseAddress(fundingAdmin)
		if err != nil {
			return nil, err
		}
		s.fundingAdmin = addr
		s.hasFundingAdmin = true
	}
	return s, nil
}

// InitializeVault creates a vault owned by admin.
func (s *VaultService) InitializeVault(admin, referenceTrader string) error {
	adminAddr, err := domain.ParseAddress(admin)
	if err != nil {
		return err
	}
	refAddr, err := domain.ParseAddress(referenceTrader)
	if err != nil {
		return err
	}
	return s.vault.Initialize(adminAddr, refAddr)
}

// Deposit moves wallet funds into vault custody.
func (s *VaultService) Deposit(user, vault string, amount uint64) error {
	userAddr, vaultAddr, err := parseAddressPair(user, vault)
	if err != nil {
		return err
	}
	return s.vault.Deposit(userAddr, vaultAddr, amount)
}

// CreditDeposit applies deposit accounting for funds that already
// arrived through an executed payment authorization.
func (s *VaultService) CreditDeposit(facilitator, vault, user string, amount uint64) error {
	facAddr, vaultAddr, err := parseAddressPair(facilitator, vault)
	if err != nil {
		return err
	}
	userAddr, err := domain.ParseAddress(user)
	if err != nil {
		return err
	}
	return s.vault.CreditDeposit(facAddr, vaultAddr, userAddr, amount)
}

// Withdraw burns shares and returns their value to the user's wallet.
func (s *VaultService) Withdraw(user, vault string, shares uint64) (uint64, error) {
	userAddr, vaultAddr, err := parseAddressPair(user, vault)
	if err != nil {
		return 0, err
	}
	return s.vault.Withdraw(userAddr, vaultAddr, shares)
}

// Fund seeds a wallet balance. Gated to the funding admin when one is
// configured.
func (s *VaultService) Fund(caller, target string, amount uint64) error {
	callerAddr, targetAddr, err := parseAddressPair(caller, target)
	if err != nil {
		return err
	}
	if s.hasFundingAdmin && callerAddr != s.fundingAdmin {
		return domain.ErrUnauthorized
	}
	if amount == 0 {
		return domain.ErrInvalidAmount
	}
	return s.wallet.Credit(targetAddr, amount)
}

// WalletBalance returns an address's plain wallet balance.
func (s *VaultService) WalletBalance(addr string) (uint64, error) {
	a, err := domain.ParseAddress(addr)
	if err != nil {
		return 0, err
	}
	return s.wallet.Balance(a), nil
}

// Info returns a vault's aggregate snapshot.
func (s *VaultService) Info(vault string) (domain.VaultInfo, error) {
	vaultAddr, err := domain.ParseAddress(vault)
	if err != nil {
		return domain.VaultInfo{}, err
	}
	return s.vault.Info(vaultAddr)
}

// UserShares returns the user's share count in a vault.
func (s *VaultService) UserShares(vault, user string) (uint64, error) {
	vaultAddr, userAddr, err := parseAddressPair(vault, user)
	if err != nil {
		return 0, err
	}
	return s.vault.UserShares(vaultAddr, userAddr)
}

// ShareValue values a share count at the vault's current share price.
func (s *VaultService) ShareValue(vault string, shares uint64) (uint64, error) {
	vaultAddr, err := domain.ParseAddress(vault)
	if err != nil {
		return 0, err
	}
	return s.vault.ShareValue(vaultAddr, shares)
}

// Balances returns the user's available, locked, and total vault
// balance.
func (s *VaultService) Balances(vault, user string) (available, locked, total uint64, err error) {
	vaultAddr, userAddr, err := parseAddressPair(vault, user)
	if err != nil {
		return 0, 0, 0, err
	}
	return s.vault.Balances(vaultAddr, userAddr)
}

func parseAddressPair(a, b string) (domain.Address, domain.Address, error) {
	first, err := domain.ParseAddress(a)
	if err != nil {
		return domain.Address{}, domain.Address{}, err
	}
	second, err := domain.ParseAddress(b)
	if err != nil {
		return domain.Address{}, domain.Address{}, err
	}
	return first, second, nil
}
