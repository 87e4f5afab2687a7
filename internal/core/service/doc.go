// Package service provides the catalog operations behind every console
// screen.
//
// Catalog guards each call with the session: all calls need a signed-in
// user, admin calls need the admin role, and a 401 from the backend tears
// the session down. List filtering and dashboard counts run client-side on
// data already fetched.
package service
