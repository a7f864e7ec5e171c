package core

// Reference data shipped with every store. The ids match the seed
// migrations so memory and SQL backends agree.
var (
	DefaultCategories = []Category{
		{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000101", Name: "Salary", Type: Income, Subcategories: []Subcategory{
			{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000201", Name: "Monthly Salary"},
			{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000202", Name: "Bonus"},
			{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000203", Name: "Freelancing"},
		}},
		{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000102", Name: "Business", Type: Income, Subcategories: []Subcategory{
			{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000204", Name: "Sales Revenue"},
			{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000205", Name: "Investments"},
		}},
		{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000103", Name: "Food", Type: Expense, Subcategories: []Subcategory{
			{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000206", Name: "Groceries"},
			{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000207", Name: "Restaurants"},
			{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000208", Name: "Fast Food"},
		}},
		{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000104", Name: "Transportation", Type: Expense, Subcategories: []Subcategory{
			{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000209", Name: "Fuel"},
			{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000210", Name: "Public Transport"},
			{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000211", Name: "Taxi"},
		}},
		{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000105", Name: "Entertainment", Type: Expense, Subcategories: []Subcategory{
			{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000212", Name: "Movies"},
			{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000213", Name: "Music"},
			{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000214", Name: "Gaming"},
		}},
	}

	DefaultPaymentMethods = []PaymentMethod{
		{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000301", Name: "Cash"},
		{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000302", Name: "Credit Card"},
		{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000303", Name: "Bank Transfer"},
		{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000304", Name: "UPI"},
		{ID: "a3c1e6f0-1d2b-4c1a-9f00-000000000305", Name: "Net Banking"},
	}
)
