// Package bench implements the load-generation core: a batch runner that
// drives one strictly-ordered request lane per simulated user, and the
// exact aggregation of per-request outcomes into summary statistics.
package bench
