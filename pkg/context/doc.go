/*
Package context provides a process-wide context that is cancelled on the
first interrupt signal. The CLI threads it through every load so that a
ctrl-c tears down pending connects and queued slot waiters cleanly.
*/
package context
