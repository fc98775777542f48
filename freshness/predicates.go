package freshness

import (
	"fmt"

	"github.com/vulcand/httptime/headers"
	"github.com/vulcand/predicate"
)

// parseExpression parses the expression into a predicate over response headers.
func parseExpression(in string) (hpredicate, error) {
	p, err := predicate.NewParser(predicate.Def{
		Operators: predicate.Operators{
			AND: and,
			OR:  or,
			EQ:  eq,
			NEQ: neq,
			LT:  lt,
			GT:  gt,
			LE:  le,
			GE:  ge,
		},
		Functions: map[string]interface{}{
			"Age":             age,
			"LastModifiedAgo": lastModifiedAgo,
			"FreshFor":        freshFor,
			"HasDate":         hasDate,
			"HasLastModified": hasLastModified,
			"HasExpires":      hasExpires,
			"IsExpired":       isExpired,
		},
	})
	if err != nil {
		return nil, err
	}
	out, err := p.Parse(in)
	if err != nil {
		return nil, err
	}
	pr, ok := out.(hpredicate)
	if !ok {
		return nil, fmt.Errorf("expected predicate, got %T", out)
	}
	return pr, nil
}

type hpredicate func(c *evalContext) bool

// toInt converts a header set to an integer amount of seconds.
type toInt func(c *evalContext) int

// age returns the amount of seconds passed since the Date header.
func age() toInt {
	return func(c *evalContext) int {
		return secondsSince(c, headers.Date)
	}
}

// lastModifiedAgo returns the amount of seconds passed since the Last-Modified header.
func lastModifiedAgo() toInt {
	return func(c *evalContext) int {
		return secondsSince(c, headers.LastModified)
	}
}

// freshFor returns the amount of seconds until the Expires header, negative
// when the expiration time lies in the past.
func freshFor() toInt {
	return func(c *evalContext) int {
		d := headers.Get(c.header, headers.Expires)
		epoch, ok := d.Epoch()
		if !ok {
			return 0
		}
		return int(epoch - c.clock.UtcNow().Unix())
	}
}

func hasDate() hpredicate {
	return hasHeader(headers.Date)
}

func hasLastModified() hpredicate {
	return hasHeader(headers.LastModified)
}

func hasExpires() hpredicate {
	return hasHeader(headers.Expires)
}

// hasHeader is true when the header is present and in a recognized date format.
func hasHeader(name string) hpredicate {
	return func(c *evalContext) bool {
		return headers.Get(c.header, name).IsSet()
	}
}

// isExpired is true when the Expires header lies in the past. An absent or
// malformed Expires header never counts as expired.
func isExpired() hpredicate {
	return func(c *evalContext) bool {
		d := headers.Get(c.header, headers.Expires)
		epoch, ok := d.Epoch()
		if !ok {
			return false
		}
		return epoch <= c.clock.UtcNow().Unix()
	}
}

// secondsSince returns now minus the date carried by the header. Absent or
// malformed headers evaluate to 0.
func secondsSince(c *evalContext, name string) int {
	d := headers.Get(c.header, name)
	epoch, ok := d.Epoch()
	if !ok {
		return 0
	}
	return int(c.clock.UtcNow().Unix() - epoch)
}

func and(a, b hpredicate) hpredicate {
	return func(c *evalContext) bool {
		return a(c) && b(c)
	}
}

func or(a, b hpredicate) hpredicate {
	return func(c *evalContext) bool {
		return a(c) || b(c)
	}
}

// eq returns predicate that tests for equality of the value of the mapper and the constant.
func eq(m interface{}, value interface{}) (hpredicate, error) {
	switch mapper := m.(type) {
	case toInt:
		return intEQ(mapper, value)
	}
	return nil, fmt.Errorf("eq: unsupported argument: %T", m)
}

// neq returns predicate that tests for inequality of the value of the mapper and the constant.
func neq(m interface{}, value interface{}) (hpredicate, error) {
	p, err := eq(m, value)
	if err != nil {
		return nil, err
	}
	return func(c *evalContext) bool {
		return !p(c)
	}, nil
}

// lt returns predicate that tests that the value of the mapper is less than the constant.
func lt(m interface{}, value interface{}) (hpredicate, error) {
	switch mapper := m.(type) {
	case toInt:
		return intLT(mapper, value)
	}
	return nil, fmt.Errorf("lt: unsupported argument: %T", m)
}

// gt returns predicate that tests that the value of the mapper is greater than the constant.
func gt(m interface{}, value interface{}) (hpredicate, error) {
	switch mapper := m.(type) {
	case toInt:
		return intGT(mapper, value)
	}
	return nil, fmt.Errorf("gt: unsupported argument: %T", m)
}

// le returns predicate that tests that the value of the mapper is less than or equal to the constant.
func le(m interface{}, value interface{}) (hpredicate, error) {
	switch mapper := m.(type) {
	case toInt:
		return intLE(mapper, value)
	}
	return nil, fmt.Errorf("le: unsupported argument: %T", m)
}

// ge returns predicate that tests that the value of the mapper is greater than or equal to the constant.
func ge(m interface{}, value interface{}) (hpredicate, error) {
	switch mapper := m.(type) {
	case toInt:
		return intGE(mapper, value)
	}
	return nil, fmt.Errorf("ge: unsupported argument: %T", m)
}

func intEQ(m toInt, val interface{}) (hpredicate, error) {
	value, ok := val.(int)
	if !ok {
		return nil, fmt.Errorf("expected int, got %T", val)
	}
	return func(c *evalContext) bool {
		return m(c) == value
	}, nil
}

func intLT(m toInt, val interface{}) (hpredicate, error) {
	value, ok := val.(int)
	if !ok {
		return nil, fmt.Errorf("expected int, got %T", val)
	}
	return func(c *evalContext) bool {
		return m(c) < value
	}, nil
}

func intGT(m toInt, val interface{}) (hpredicate, error) {
	value, ok := val.(int)
	if !ok {
		return nil, fmt.Errorf("expected int, got %T", val)
	}
	return func(c *evalContext) bool {
		return m(c) > value
	}, nil
}

func intLE(m toInt, val interface{}) (hpredicate, error) {
	value, ok := val.(int)
	if !ok {
		return nil, fmt.Errorf("expected int, got %T", val)
	}
	return func(c *evalContext) bool {
		return m(c) <= value
	}, nil
}

func intGE(m toInt, val interface{}) (hpredicate, error) {
	value, ok := val.(int)
	if !ok {
		return nil, fmt.Errorf("expected int, got %T", val)
	}
	return func(c *evalContext) bool {
		return m(c) >= value
	}, nil
}
