/*
Package cmd provides all the commands for the netload binary.

The commands are separated by file, with each file corresponding to one
subcommand. A few global CLI flags configure logging verbosity and output
format and are exposed as package level variables.
*/
package cmd
