package public

import (
	"github.com/ardanlabs/docledger/business/sys/validate"
	"github.com/ardanlabs/docledger/foundation/ledger/database"
)

// NewDocument is what a client posts to submit a document.
type NewDocument struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// Validate checks the data in the model is considered clean.
func (nd NewDocument) Validate() error {
	if err := validate.Check(nd); err != nil {
		return err
	}
	return nil
}

type submitted struct {
	Message  string            `json:"message"`
	Document database.Document `json:"document"`
}

type sealed struct {
	Message string         `json:"message"`
	Block   database.Block `json:"block"`
}

type verified struct {
	Status string `json:"status"`
	Length int    `json:"length"`
}
