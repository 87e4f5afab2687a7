// Package buildinfo exposes the version of libcat-cli.
//
// Version, Commit and BuildTime are injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/libcat-go/internal/infra/buildinfo.Version=v1.2.0"
//
// When they are not set, the VCS stamp embedded by the Go toolchain is used.
package buildinfo
