//go:build !windows

package cosimio_test

func init() { backends = append(backends, "pipe") }
