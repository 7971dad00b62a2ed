// Package auth holds the credential primitives: bcrypt password hashing,
// 6-digit confirmation/reset codes, and JWT session tokens.
package auth
