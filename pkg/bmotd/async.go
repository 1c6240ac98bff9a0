package bmotd

import "fmt"

// Result carries the outcome of an asynchronous query. Exactly one of MOTD
// and Err is meaningful.
type Result struct {
	Err  error
	MOTD string
}

// QueryAsync runs the exchange on its own goroutine and delivers the result
// on the returned channel exactly once. The channel is buffered, abandoning
// it does not leak the goroutine.
func (c *Client) QueryAsync() <-chan Result {
	ch := make(chan Result, 1)

	go func() {
		motd, err := c.Query()
		ch <- Result{MOTD: motd, Err: err}
	}()

	return ch
}

// QueryCallback runs the exchange on its own goroutine and invokes exactly
// one of the two callbacks. Unexpected failures are normalized to a plain
// error before reaching onError, so the callback only ever sees one error
// shape. Nil callbacks are tolerated.
func (c *Client) QueryCallback(onSuccess func(motd string), onError func(err error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil && onError != nil {
				onError(fmt.Errorf("query failed: %v", r))
			}
		}()

		motd, err := c.Query()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}

		if onSuccess != nil {
			onSuccess(motd)
		}
	}()
}
