package attack

import (
	"context"

	"github.com/RedPaladin7/wupattack/record"
)

// Oracle answers a single accept/reject bit per request. It must not reveal
// why a request was rejected. An error means the oracle did not answer.
type Oracle interface {
	Query(ctx context.Context, req record.Request) (bool, error)
}

// OracleFunc adapts a plain function to Oracle.
type OracleFunc func(ctx context.Context, req record.Request) (bool, error)

func (f OracleFunc) Query(ctx context.Context, req record.Request) (bool, error) {
	return f(ctx, req)
}

// counting wraps an oracle and counts the queries it answers.
type counting struct {
	Oracle
	queries int
}

func (c *counting) Query(ctx context.Context, req record.Request) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.queries++
	return c.Oracle.Query(ctx, req)
}
