// File: internal/resiliency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Failure containment helpers: per-step isolation of best-effort cleanup
// calls, panic-to-error conversion, and bounded exponential retry.
package resiliency
