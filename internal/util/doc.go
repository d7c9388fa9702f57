// Package util provides small helpers shared across the proxy: input
// validation for configuration values and HTTP response-writer wrappers.
package util
