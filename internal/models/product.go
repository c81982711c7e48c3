package models

// Product is the part of a catalog entry an RFQ item snapshots.
type Product struct {
	Id    string
	Name  string
	Image string
}
