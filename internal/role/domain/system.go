package domain

// SystemRoleTemplate describes a role the platform seeds into every shop.
// System roles cannot be deleted or renamed, and the permissions listed here
// cannot be revoked from them.
type SystemRoleTemplate struct {
	Key         string
	Name        string
	Permissions []string
}

const (
	SeedKeyOwner         = "owner"
	SeedKeyBranchManager = "branch_manager"
	SeedKeyCashier       = "cashier"
)

// SystemRoleTemplates returns the baseline role set. Owner is global scope and
// is the path that bypasses branch partitioning for administrators.
func SystemRoleTemplates() []SystemRoleTemplate {
	return []SystemRoleTemplate{
		{
			Key:  SeedKeyOwner,
			Name: "Owner",
			Permissions: []string{
				"pos.sale.create", "pos.sale.refund", "pos.register.open", "pos.discount.apply",
				"inventory.item.view", "inventory.item.create", "inventory.item.update",
				"inventory.item.delete", "inventory.stock.adjust",
				"staff.user.view", "staff.user.manage", "staff.role.view", "staff.role.manage",
				"branch.view", "branch.manage",
				"report.sales.view", "report.finance.view",
				"billing.subscription.view", "billing.subscription.manage", "billing.invoice.view",
			},
		},
		{
			Key:  SeedKeyBranchManager,
			Name: "Branch Manager",
			Permissions: []string{
				"pos.sale.create", "pos.sale.refund", "pos.register.open", "pos.discount.apply",
				"inventory.item.view", "inventory.item.create", "inventory.item.update",
				"inventory.stock.adjust",
				"staff.user.view", "staff.role.view",
				"branch.view",
				"report.sales.view",
			},
		},
		{
			Key:  SeedKeyCashier,
			Name: "Cashier",
			Permissions: []string{
				"pos.sale.create", "pos.register.open",
				"inventory.item.view",
			},
		},
	}
}

// SeededPermissions returns the protected permission set for a system role
// seed key, or nil when the key is unknown.
func SeededPermissions(key string) map[string]bool {
	for _, tpl := range SystemRoleTemplates() {
		if tpl.Key != key {
			continue
		}
		set := make(map[string]bool, len(tpl.Permissions))
		for _, p := range tpl.Permissions {
			set[p] = true
		}
		return set
	}
	return nil
}
