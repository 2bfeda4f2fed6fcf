package ledger

// CreditPack is a purchasable bundle from the embedded catalog. Catalog
// entries are advisory for clients; purchases still validate the raw amount.
type CreditPack struct {
	ID         string `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	Credits    int64  `yaml:"credits" json:"credits"`
	PriceCents int64  `yaml:"price_cents" json:"price_cents"`
	Currency   string `yaml:"currency" json:"currency"`
}
