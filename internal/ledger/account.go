package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AccountScope is the top-level account namespace.
type AccountScope uint8

const (
	AccountScopeUser AccountScope = iota
	AccountScopeSystem
	AccountScopeExternal
)

// AccountSubType identifies the account purpose within a scope.
type AccountSubType uint8

const (
	// User sub-types
	SubTypeCollateral AccountSubType = iota
	SubTypeDebt

	// System sub-types
	SubTypeSystemDebtIssued

	// External sub-types
	SubTypeExternalCustody
)

// DebtAsset is the asset label on liability accounts. The synthetic is
// unit-pegged, so there is exactly one liability denomination.
const DebtAsset = "DSC"

// AccountKey identifies a balance bucket. Comparable, used directly as a map
// key by the tracker.
type AccountKey struct {
	Scope    AccountScope
	EntityID [16]byte // user UUID; zero for system/external accounts
	SubType  AccountSubType
	Asset    string
}

// NewCollateralKey is a user's deposited balance of one asset.
func NewCollateralKey(user uuid.UUID, asset string) AccountKey {
	return AccountKey{Scope: AccountScopeUser, EntityID: user, SubType: SubTypeCollateral, Asset: asset}
}

// NewDebtKey is a user's outstanding liability.
func NewDebtKey(user uuid.UUID) AccountKey {
	return AccountKey{Scope: AccountScopeUser, EntityID: user, SubType: SubTypeDebt, Asset: DebtAsset}
}

// NewDebtIssuedKey is the system-wide counter-account to all user debt.
func NewDebtIssuedKey() AccountKey {
	return AccountKey{Scope: AccountScopeSystem, SubType: SubTypeSystemDebtIssued, Asset: DebtAsset}
}

// NewCustodyKey is the external boundary account for one collateral asset.
// It runs negative: its negation equals the total the vault must custody.
func NewCustodyKey(asset string) AccountKey {
	return AccountKey{Scope: AccountScopeExternal, SubType: SubTypeExternalCustody, Asset: asset}
}

// AccountPath renders the key for storage and logging, e.g.
// "user:<uuid>:collateral:WETH" or "external:custody:WETH".
func (k AccountKey) AccountPath() string {
	switch k.Scope {
	case AccountScopeUser:
		uid := uuid.UUID(k.EntityID)
		return fmt.Sprintf("user:%s:%s:%s", uid.String(), k.subTypeName(), k.Asset)
	case AccountScopeSystem:
		return fmt.Sprintf("system:%s:%s", k.subTypeName(), k.Asset)
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s:%s", k.subTypeName(), k.Asset)
	}
	return "unknown"
}

// ParseAccountPath inverts AccountPath. Used when restoring balances from a
// snapshot row.
func ParseAccountPath(path string) (AccountKey, error) {
	parts := strings.Split(path, ":")
	switch {
	case len(parts) == 4 && parts[0] == "user":
		uid, err := uuid.Parse(parts[1])
		if err != nil {
			return AccountKey{}, fmt.Errorf("account path %q: %w", path, err)
		}
		st, err := subTypeFromName(parts[2])
		if err != nil {
			return AccountKey{}, fmt.Errorf("account path %q: %w", path, err)
		}
		return AccountKey{Scope: AccountScopeUser, EntityID: uid, SubType: st, Asset: parts[3]}, nil

	case len(parts) == 3 && parts[0] == "system":
		st, err := subTypeFromName(parts[1])
		if err != nil {
			return AccountKey{}, fmt.Errorf("account path %q: %w", path, err)
		}
		return AccountKey{Scope: AccountScopeSystem, SubType: st, Asset: parts[2]}, nil

	case len(parts) == 3 && parts[0] == "external":
		st, err := subTypeFromName(parts[1])
		if err != nil {
			return AccountKey{}, fmt.Errorf("account path %q: %w", path, err)
		}
		return AccountKey{Scope: AccountScopeExternal, SubType: st, Asset: parts[2]}, nil
	}
	return AccountKey{}, fmt.Errorf("account path %q: unrecognized shape", path)
}

func subTypeFromName(name string) (AccountSubType, error) {
	switch name {
	case "collateral":
		return SubTypeCollateral, nil
	case "debt":
		return SubTypeDebt, nil
	case "debt_issued":
		return SubTypeSystemDebtIssued, nil
	case "custody":
		return SubTypeExternalCustody, nil
	}
	return 0, fmt.Errorf("unknown account sub-type %q", name)
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypeCollateral:
		return "collateral"
	case SubTypeDebt:
		return "debt"
	case SubTypeSystemDebtIssued:
		return "debt_issued"
	case SubTypeExternalCustody:
		return "custody"
	default:
		return "unknown"
	}
}
