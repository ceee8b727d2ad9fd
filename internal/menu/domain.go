package menu

// Category groups dishes on the storefront menu.
type Category struct {
	ID   int64
	Name string
}

// Dish is one orderable menu position. Price is in the smallest currency unit.
type Dish struct {
	ID          int64
	CategoryID  int64
	Name        string
	Description string
	Ingredients string
	Price       int64
	Available   bool
}
