// Package domain contains core domain types for the trading bot.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SteamID is a 64-bit platform identity. Bits 52-55 carry the account type.
type SteamID uint64

// AccountType classifies a SteamID.
type AccountType uint8

const (
	AccountTypeInvalid    AccountType = 0
	AccountTypeIndividual AccountType = 1
	AccountTypeClan       AccountType = 7
	AccountTypeChat       AccountType = 8
)

const (
	accountTypeShift = 52
	accountTypeMask  = 0xF
)

// NewSteamID builds an ID of the given type from a 32-bit account id in the public universe.
func NewSteamID(accountID uint32, t AccountType) SteamID {
	const universePublic = uint64(1) << 56
	const instanceDesktop = uint64(1) << 32
	id := universePublic | uint64(t)<<accountTypeShift | uint64(accountID)
	if t == AccountTypeIndividual {
		id |= instanceDesktop
	}
	return SteamID(id)
}

// AccountType returns the type encoded in the identifier.
func (id SteamID) AccountType() AccountType {
	return AccountType((uint64(id) >> accountTypeShift) & accountTypeMask)
}

// IsClan reports whether the identifier refers to a group.
func (id SteamID) IsClan() bool {
	return id.AccountType() == AccountTypeClan
}

// IsZero reports whether the identifier is unset.
func (id SteamID) IsZero() bool {
	return id == 0
}

func (id SteamID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseSteamID parses a decimal 64-bit identifier.
func ParseSteamID(raw string) (SteamID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse steam id %q: %w", raw, err)
	}
	return SteamID(v), nil
}
