// Package freshness evaluates cache freshness conditions over HTTP response
// headers. Conditions are written in a simple expression language:
//
//	cond, err := freshness.New(`FreshFor() > 0 || LastModifiedAgo() < 3600`)
//	if cond.Matches(resp.Header) {
//		// serve from cache
//	}
//
// Integer functions, all in seconds:
//
//	Age()             time passed since the Date header
//	LastModifiedAgo() time passed since the Last-Modified header
//	FreshFor()        time left until the Expires header, negative when past
//
// An absent or malformed header makes these evaluate to 0, guard with the
// boolean functions when that matters:
//
//	HasDate() HasLastModified() HasExpires() IsExpired()
package freshness

import (
	"net/http"

	"github.com/mailgun/timetools"
)

type optSetter func(c *Condition) error

// Clock sets the time provider the condition evaluates against.
func Clock(clock timetools.TimeProvider) optSetter {
	return func(c *Condition) error {
		c.clock = clock
		return nil
	}
}

// Condition is a compiled freshness expression.
type Condition struct {
	expression string
	check      hpredicate
	clock      timetools.TimeProvider
}

// New compiles the expression into a condition. The expression is parsed
// once, Matches can be called any amount of times afterwards.
func New(expression string, settings ...optSetter) (*Condition, error) {
	c := &Condition{
		expression: expression,
	}

	for _, s := range settings {
		if err := s(c); err != nil {
			return nil, err
		}
	}

	if c.clock == nil {
		c.clock = &timetools.RealTime{}
	}

	check, err := parseExpression(expression)
	if err != nil {
		return nil, err
	}
	c.check = check

	return c, nil
}

// Matches evaluates the condition against the given response headers.
func (c *Condition) Matches(h http.Header) bool {
	return c.check(&evalContext{clock: c.clock, header: h})
}

// String returns the original expression.
func (c *Condition) String() string {
	return c.expression
}

// evalContext carries everything a predicate needs to evaluate a single header set.
type evalContext struct {
	clock  timetools.TimeProvider
	header http.Header
}
