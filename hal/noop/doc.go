// Package noop implements hal.Device and its supporting interfaces with
// no real GPU behind them. It is the reference implementation used by this
// module's own tests and the demo command: every call succeeds, every
// clear/copy/barrier is recorded for inspection, and every Timeline signals
// synchronously since there is no asynchronous device to wait on.
package noop
