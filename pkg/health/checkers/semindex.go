package checkers

import (
	"context"
	"time"
)

// Pinger is satisfied by the semantic-index client.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SemIndexChecker struct {
	client Pinger
}

func NewSemIndexChecker(client Pinger) *SemIndexChecker {
	return &SemIndexChecker{client: client}
}

func (c *SemIndexChecker) Name() string { return "semindex" }

func (c *SemIndexChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx)
}
