// Package orchestrator
// Author: momentics <momentics@gmail.com>
//
// Connection lifecycle of the head unit. The Orchestrator watches the USB
// hub, switches connected phones into accessory mode, accepts wireless
// peers on TCP and runs at most one projection session at a time. Every
// state change happens on a single strand; collaborator callbacks and
// public commands are queued onto it, never applied inline.
package orchestrator
