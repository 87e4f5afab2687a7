// Package output renders command results and session effects.
//
//   - formatter.go: Formatter interface, factory and Printer
//   - table.go: columns derived from struct fields; `table:"wide"` fields
//     only show with --wide
//   - json.go, yaml.go: machine-readable output
//   - notice.go: "✓ message", "✗ message" and "→ /path" lines
//   - spinner.go: animation while waiting on the catalog API
package output
