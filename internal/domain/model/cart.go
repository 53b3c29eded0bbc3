package model

// CartItem is one (product, quantity) pair from a user's cart. The checkout
// core only reads carts and clears them after payment capture.
type CartItem struct {
	ProductID int64
	Quantity  int
}
