// Package types defines the shared domain types of AeroDesk: queries,
// retrieval chunks, merged contexts, answers, routing traces, and the
// structured error model used across packages.
package types
