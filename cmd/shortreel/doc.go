// Command shortreel is the CLI front end for the shortreel daemon. It talks
// to the daemon over the HTTP API for job and queue operations, and works
// offline for configuration utilities.
package main
