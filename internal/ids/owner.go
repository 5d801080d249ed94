// Package ids mints the opaque tokens the core hands out: owner tokens,
// message ids, and semaphore lease tokens.
package ids

import "github.com/google/uuid"

// NewOwnerToken mints a per-worker unique identifier. It is minted once per
// process (see spec §2 component 2) and embedded in every claim this
// process makes.
func NewOwnerToken() string {
	return uuid.New().String()
}

// NewMessageID mints an opaque id for a new OutboxMessage or Timer row.
func NewMessageID() string {
	return uuid.New().String()
}

// NewToken mints an opaque token, used for semaphore lease tokens and
// distributed lock owner tokens.
func NewToken() string {
	return uuid.New().String()
}
