package permission

// CatalogEntry describes one permission the platform ships with. The catalog
// is fixed at build time; Seed materialises it into the store.
type CatalogEntry struct {
	Identifier  string
	Module      string
	Action      string
	Description string
}

// Catalog lists every permission identifier grouped by module and action.
// Order here is the presentation order.
func Catalog() []CatalogEntry {
	return []CatalogEntry{
		{"pos.sale.create", "pos", "sale.create", "Ring up sales at the register"},
		{"pos.sale.refund", "pos", "sale.refund", "Refund completed sales"},
		{"pos.register.open", "pos", "register.open", "Open and close the cash register"},
		{"pos.discount.apply", "pos", "discount.apply", "Apply discounts to sales"},

		{"inventory.item.view", "inventory", "item.view", "View inventory items"},
		{"inventory.item.create", "inventory", "item.create", "Create inventory items"},
		{"inventory.item.update", "inventory", "item.update", "Edit inventory items"},
		{"inventory.item.delete", "inventory", "item.delete", "Remove inventory items"},
		{"inventory.stock.adjust", "inventory", "stock.adjust", "Adjust stock levels"},

		{"staff.user.view", "staff", "user.view", "View staff accounts"},
		{"staff.user.manage", "staff", "user.manage", "Create and edit staff accounts"},
		{"staff.role.view", "staff", "role.view", "View roles and their permissions"},
		{"staff.role.manage", "staff", "role.manage", "Create, edit and delete roles"},

		{"branch.view", "branch", "view", "View branch details"},
		{"branch.manage", "branch", "manage", "Create and edit branches"},

		{"report.sales.view", "report", "sales.view", "View sales reports"},
		{"report.finance.view", "report", "finance.view", "View financial reports"},

		{"billing.subscription.view", "billing", "subscription.view", "View the shop subscription"},
		{"billing.subscription.manage", "billing", "subscription.manage", "Change plan or cancel the subscription"},
		{"billing.invoice.view", "billing", "invoice.view", "View invoices and payment history"},
	}
}
