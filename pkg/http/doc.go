/*
Package http implements a raw HTTP/1.1 client engine directly on socket
primitives.

One Client serves one request attempt over one connection: serialize the
request, pump it out across partial writes, parse the status line and
headers from an incrementally filled receive buffer, then deliver the body
either fully buffered or as a live stream under backpressure. Every
connection is closed after the attempt; redirects are detected and reported,
never followed here. The loader package owns that policy and starts a fresh
Client per hop.

There is deliberately no success policy in this package: a 500 is delivered
the same way a 200 is. The only statuses handled specially are 301 and 302,
which short-circuit into a Redirect outcome without constructing a response
object.
*/
package http
