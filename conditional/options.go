package conditional

import (
	"fmt"

	"github.com/mailgun/timetools"
	log "github.com/sirupsen/logrus"
	"github.com/vulcand/httptime/utils"
)

type optSetter func(c *Conditional) error

// Logger defines the logger the conditional middleware will use.
func Logger(l *log.Logger) optSetter {
	return func(c *Conditional) error {
		c.log = l
		return nil
	}
}

// ErrorHandler sets error handler of the server.
func ErrorHandler(h utils.ErrorHandler) optSetter {
	return func(c *Conditional) error {
		c.errHandler = h
		return nil
	}
}

// Clock sets the time provider used to stamp Date headers.
func Clock(clock timetools.TimeProvider) optSetter {
	return func(c *Conditional) error {
		c.clock = clock
		return nil
	}
}

// MaxResponseBodyBytes sets the largest response the middleware is willing to
// buffer, larger responses are rejected through the error handler.
func MaxResponseBodyBytes(m int64) optSetter {
	return func(c *Conditional) error {
		if m < 0 {
			return fmt.Errorf("max bytes should be >= 0 got %d", m)
		}
		c.maxResponseBodyBytes = m
		return nil
	}
}

// MemResponseBodyBytes bytes sets the largest response held in memory, the
// overflow is buffered to disk.
func MemResponseBodyBytes(m int64) optSetter {
	return func(c *Conditional) error {
		if m < 0 {
			return fmt.Errorf("mem bytes should be >= 0 got %d", m)
		}
		c.memResponseBodyBytes = m
		return nil
	}
}
