// Package inmemorytopology provides a thread-safe, in-memory implementation
// of topologystore.Store. It is designed for compilations whose constraint
// graph fits comfortably in memory and does not require persistent storage.
package inmemorytopology
