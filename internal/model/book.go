package model

// Book tracks the cost basis (purchase price in stable-asset terms) per
// asset. A zero entry means no tracked basis. The book lives for the
// process lifetime; the owner is responsible for synchronizing access.
type Book map[string]float64

// CostBasis returns the tracked purchase price for an asset, 0 if untracked.
func (b Book) CostBasis(asset string) float64 {
	return b[asset]
}

// SetCostBasis records the purchase price after a successful rotation into
// an asset.
func (b Book) SetCostBasis(asset string, price float64) {
	b[asset] = price
}

// Clone returns a copy, used for snapshotting.
func (b Book) Clone() Book {
	out := make(Book, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
