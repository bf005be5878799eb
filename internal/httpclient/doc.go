// Package httpclient drives benchmark requests over a tuned net/http
// client and classifies each call into a bench.Outcome: transport
// failures carry an error message and no latency, HTTP-level failures
// carry the received status code.
package httpclient
