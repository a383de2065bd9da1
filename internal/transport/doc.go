// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transport layer of the head unit: the wireless projection listener with
// its single-shot acceptor, and uniform endpoints over accepted sockets and
// USB accessory streams.

package transport
