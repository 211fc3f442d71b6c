package service

import "context"

// TxRepositories exposes repositories bound to one transaction.
type TxRepositories interface {
	Documents() IngestionDocumentRepository
	Chunks() IngestionChunkRepository
}

// TxRunner runs a function against transactional repositories, committing on
// nil return and rolling back otherwise.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
