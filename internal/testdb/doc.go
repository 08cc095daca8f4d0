// Package testdb provides shared database and cache fixtures for
// integration tests. Containers are started lazily, once per test binary,
// and reaped by testcontainers when the binary exits.
package testdb
