/*
Package transport binds the client engine to plain TCP or TLS sockets
behind one capability surface: Resolve, Connect, Handshake, Read, Write.

Both variants are single-shot. A Conn serves exactly one request attempt and
is closed afterwards; redirects get a fresh Conn at the loader level.

The TLS variant exposes a per-certificate verify hook plus two deployment
escape hatches, WithForceAcceptCerts and WithInsecureSkipVerify. Neither is
default behaviour.
*/
package transport
