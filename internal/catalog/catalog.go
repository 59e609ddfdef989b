package catalog

import (
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/domain"
)

// Product is a catalog entry. Price is in minor currency units; quantities
// arrive from the buyer's client and are never trusted for pricing.
type Product struct {
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	Thumbnail string `json:"thumbnail"`
}

// LineItem is a product selection from the buyer's cart.
type LineItem struct {
	Title    string `json:"title"`
	Quantity int64  `json:"quantity"`
}

type Catalog struct {
	products []Product
	byTitle  map[string]int64
}

func New(products []Product) *Catalog {
	byTitle := make(map[string]int64, len(products))
	for _, p := range products {
		byTitle[p.Title] = p.Price
	}
	return &Catalog{products: products, byTitle: byTitle}
}

// Default returns the storefront's built-in product list.
func Default() *Catalog {
	return New([]Product{
		{Title: "T-shirt", Price: 1500, Thumbnail: "/images/t-shirt.png"},
		{Title: "Mug", Price: 800, Thumbnail: "/images/mug.png"},
		{Title: "Stickers", Price: 350, Thumbnail: "/images/stickers.png"},
	})
}

func (c *Catalog) Products() []Product {
	return c.products
}

// ComputeAmount prices the cart from the catalog's own price list. Client
// quantities cross a trust boundary, so prices are never taken from the
// request and the computed total must come out strictly positive.
func (c *Catalog) ComputeAmount(items []LineItem) (int64, error) {
	var total int64
	for _, item := range items {
		price, ok := c.byTitle[item.Title]
		if !ok {
			return 0, domain.ErrUnknownProduct
		}
		if item.Quantity < 0 {
			return 0, domain.ErrInvalidQuantity
		}
		total += price * item.Quantity
	}
	if total <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return total, nil
}
