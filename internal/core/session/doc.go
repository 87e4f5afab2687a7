// Package session owns the signed-in state of the console.
//
// A Controller holds the bearer token and the resolved user, mediates
// login, registration and logout, and decides where the user belongs once
// their role is known. It never drives the UI directly: navigation is
// emitted as an Intent to a Navigator and user-facing messages as Notice
// values to a Notifier.
//
// At most one profile request is outstanding at a time. Each request is
// tagged with the token it was issued for; a response that arrives after
// its slot was taken by a newer token is discarded.
package session
