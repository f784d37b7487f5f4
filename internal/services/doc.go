// Package services contains MedKeeper's business logic.
//
// AuthService owns patient credentials: registration, three-factor
// authentication with lockout, and PIN reset. VaultService owns record keys:
// every record is sealed under its own random key and the key never leaves
// this package.
package services
