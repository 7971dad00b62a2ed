// Package storage defines the domain entities and store interfaces used by
// the HTTP layer. Implementations live in subpackages (postgres).
package storage
