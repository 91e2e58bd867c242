/*
Package testServer provides a fasthttp server with predictable responses
for exercising the client engine by hand: fixed bodies, exact-size bodies,
301/302 redirects with absolute locations, arbitrary status codes and a
slow streaming endpoint.

The server is used for testing, and should not be used in a production
environment.
*/
package main
