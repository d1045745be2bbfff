package shared

// RoleAdmin is the built-in role that owns every catalog mutation.
const RoleAdmin = "admin"

// Core platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"
	PermPermissionsEdit = "permissions.edit"

	PermAuditView = "audit.view"
)

// Commerce permissions.
const (
	PermSalesView   = "sales.view"
	PermSalesCreate = "sales.create"
	PermSalesCancel = "sales.cancel"

	PermPurchasingView = "purchasing.view"
	PermPurchasingEdit = "purchasing.edit"
	PermPaymentsPost   = "payments.post"

	PermExpensesView = "expenses.view"
	PermExpensesEdit = "expenses.edit"

	PermContactView = "contact.view"
	PermContactEdit = "contact.edit"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermPermissionsEdit,
		PermAuditView,
	}
}

// CommerceScopes lists permissions guarding sales, purchasing, expenses and
// contact intake.
func CommerceScopes() []string {
	return []string{
		PermSalesView,
		PermSalesCreate,
		PermSalesCancel,
		PermPurchasingView,
		PermPurchasingEdit,
		PermPaymentsPost,
		PermExpensesView,
		PermExpensesEdit,
		PermContactView,
		PermContactEdit,
	}
}
