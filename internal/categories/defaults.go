package categories

// DefaultRules returns the rules for the standard FP&A category naming
// ("Revenue", "COGS", "Opex:Marketing", ...).
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "Revenue", Class: ClassRevenue},
		{Pattern: "Revenue:*", Class: ClassRevenue},
		{Pattern: "Sales", Class: ClassRevenue},
		{Pattern: "COGS", Class: ClassCOGS},
		{Pattern: "COGS:*", Class: ClassCOGS},
		{Pattern: "Cost of Goods Sold", Class: ClassCOGS},
		{Pattern: "Cost of Sales", Class: ClassCOGS},
		{Pattern: "Opex", Class: ClassOpex},
		{Pattern: "Opex:*", Class: ClassOpex},
		{Pattern: "Operating Expenses", Class: ClassOpex},
	}
}
