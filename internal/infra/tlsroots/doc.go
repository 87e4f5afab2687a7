// Package tlsroots builds the client TLS configuration for the catalog API.
//
// Roots start from the system pool unless disabled, then custom CA bundles
// (a PEM file or a directory of .pem/.crt/.cer files) are added. An optional
// client certificate is presented for backends behind mutual TLS.
package tlsroots
