/*
Package loader sits above the client engine and owns everything the engine
refuses to decide: URL parsing, http vs https transport selection, buffered
vs streamed delivery, and redirect policy.

A redirect never rewinds a client; the loader tears the attempt down and
starts a fresh client against the new location, up to a configurable cap.
The Service variant additionally bounds how many loads run at once using a
FIFO slot coordinator.
*/
package loader
