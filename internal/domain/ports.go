package domain

import "context"

// PasswordHasher hashes and verifies secrets such as passwords and recovery keywords.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	// Compare returns ErrInvalidCredentials when secret does not match hash
	Compare(hash, secret string) error
}

// TradePublisher announces committed trades to downstream consumers.
type TradePublisher interface {
	PublishTrade(ctx context.Context, tx *Transaction) error
}

// NopPublisher discards trade events.
type NopPublisher struct{}

func (NopPublisher) PublishTrade(context.Context, *Transaction) error { return nil }
