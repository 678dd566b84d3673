package auth

import (
	"net/http"

	"github.com/karanja-dev/duka-pos/internal/common"
)

// Role names as stored on the users table.
const (
	RoleAdmin          = "admin"
	RoleManager        = "manager"
	RoleInventoryStaff = "inventory_staff"
	RoleCashier        = "cashier"
)

// Feature names gated by the capability table.
const (
	FeatureInventory     = "inventory"
	FeatureReports       = "reports"
	FeatureUsers         = "users"
	FeatureExpense       = "expense"
	FeatureExpenseDelete = "expense_delete"
	FeatureCustomers     = "customers"
	FeaturePOS           = "pos"
)

// capabilities maps each gated feature to the roles allowed to use it.
var capabilities = map[string][]string{
	FeatureInventory:     {RoleAdmin, RoleManager, RoleInventoryStaff},
	FeatureReports:       {RoleAdmin, RoleManager},
	FeatureUsers:         {RoleAdmin},
	FeatureExpense:       {RoleAdmin, RoleManager},
	FeatureExpenseDelete: {RoleAdmin},
	FeatureCustomers:     {RoleAdmin, RoleManager, RoleCashier},
	FeaturePOS:           {RoleAdmin, RoleManager, RoleInventoryStaff, RoleCashier},
}

// Roles returns the known role names in display order.
func Roles() []string {
	return []string{RoleAdmin, RoleManager, RoleInventoryStaff, RoleCashier}
}

// ValidRole reports whether role is one of the known role names.
func ValidRole(role string) bool {
	for _, r := range Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// CanAccess reports whether the given role may use the given feature.
// Unknown features are denied for everyone.
func CanAccess(role, feature string) bool {
	for _, allowed := range capabilities[feature] {
		if allowed == role {
			return true
		}
	}
	return false
}

// RequireFeature gates a route on the capability table. It must run after
// RequireAuth so the session is present in the request context.
func RequireFeature(feature string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := common.SessionFrom(r.Context())
			if !ok {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			if !CanAccess(session.Role, feature) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
