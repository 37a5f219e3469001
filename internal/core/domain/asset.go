package domain

import "fmt"

// Asset identifies one non-fungible unit on the external ledger.
type Asset struct {
	CollectionID string
	TokenID      string
}

// NewAsset returns a validated asset reference.
func NewAsset(collectionID, tokenID string) (Asset, error) {
	a := Asset{collectionID, tokenID}
	if err := a.Validate(); err != nil {
		return Asset{}, err
	}
	return a, nil
}

// Validate makes sure both identifiers are set.
func (a Asset) Validate() error {
	if len(a.CollectionID) <= 0 || len(a.TokenID) <= 0 {
		return ErrInvalidAsset
	}
	return nil
}

// Key returns the unique string key of the asset, used to index custody
// entries.
func (a Asset) Key() string {
	return fmt.Sprintf("%s/%s", a.CollectionID, a.TokenID)
}

func (a Asset) String() string {
	return a.Key()
}
