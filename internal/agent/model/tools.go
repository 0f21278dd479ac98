package model

// Product is one entry of the product catalogue.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Grades      []string `json:"grades,omitempty"`
	Standards   []string `json:"standards,omitempty"`
	InStock     bool     `json:"in_stock"`
}

// ProductDetails extends Product with technical specifications.
type ProductDetails struct {
	Product
	Specifications map[string]string `json:"specifications"`
	Applications   []string          `json:"applications,omitempty"`
}
