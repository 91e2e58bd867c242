/*
Package netload provides a from-scratch HTTP/1.1 client engine built on raw
TCP and TLS sockets, plus a loader layer that handles URL parsing, redirect
following and slot-bounded concurrency on top of it.

There are no exports in the root package.

CLI tools part of `cmd/` include:
	- netload - fetches urls through the raw client engine
	- testServer - a fasthttp server with predictable responses for exercising the client by hand

*/
package netload
