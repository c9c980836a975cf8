package connector

// ERPSystem identifies which external ERP a tenant integration connects to.
// The set is fixed; adding a system means adding an adapter variant, not a
// new branch in existing logic.
type ERPSystem string

const (
	// ERPSystemOdoo represents Odoo (session-based JSON-RPC auth)
	ERPSystemOdoo ERPSystem = "odoo"
	// ERPSystemSAPB1 represents SAP Business One Service Layer
	ERPSystemSAPB1 ERPSystem = "sap_b1"
	// ERPSystemQuickBooks represents QuickBooks Online
	ERPSystemQuickBooks ERPSystem = "quickbooks"
	// ERPSystemSage represents Sage (SData)
	ERPSystemSage ERPSystem = "sage"
	// ERPSystemDynamics365 represents Microsoft Dynamics 365
	ERPSystemDynamics365 ERPSystem = "dynamics365"
	// ERPSystemCustomREST represents a tenant-defined REST API
	ERPSystemCustomREST ERPSystem = "custom_rest"
)

// AllERPSystems lists every supported system
func AllERPSystems() []ERPSystem {
	return []ERPSystem{
		ERPSystemOdoo, ERPSystemSAPB1, ERPSystemQuickBooks,
		ERPSystemSage, ERPSystemDynamics365, ERPSystemCustomREST,
	}
}

// IsValid returns true if the system is a supported value
func (s ERPSystem) IsValid() bool {
	switch s {
	case ERPSystemOdoo, ERPSystemSAPB1, ERPSystemQuickBooks,
		ERPSystemSage, ERPSystemDynamics365, ERPSystemCustomREST:
		return true
	default:
		return false
	}
}

// String returns the string representation of the system
func (s ERPSystem) String() string {
	return string(s)
}

// UsesOAuth reports whether the system authenticates with OAuth tokens that
// expire and must be refreshed. Session-auth systems (Odoo, SAP B1, Sage)
// re-authenticate per call and skip the refresh path.
func (s ERPSystem) UsesOAuth() bool {
	switch s {
	case ERPSystemQuickBooks, ERPSystemDynamics365, ERPSystemCustomREST:
		return true
	default:
		return false
	}
}

// DisplayName returns a human-readable name for the system
func (s ERPSystem) DisplayName() string {
	switch s {
	case ERPSystemOdoo:
		return "Odoo"
	case ERPSystemSAPB1:
		return "SAP Business One"
	case ERPSystemQuickBooks:
		return "QuickBooks Online"
	case ERPSystemSage:
		return "Sage"
	case ERPSystemDynamics365:
		return "Dynamics 365"
	case ERPSystemCustomREST:
		return "Custom REST API"
	default:
		return string(s)
	}
}
