package types

// Watch is a single price alert of one user. Its identity is the
// (user, coin, price) triple, the user being the key it is stored under.
type Watch struct {
	Coin  string  `json:"coin"`
	Price float64 `json:"price"`
}

// Trigger is a watch whose coin was observed at or above its target.
type Trigger struct {
	UserID string  `json:"user_id"`
	Coin   string  `json:"coin"`
	Target float64 `json:"target"`
	Price  float64 `json:"price"`
}
