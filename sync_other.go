//go:build !linux

package caskdb

import "os"

func fdatasync(f *os.File) error {
	return f.Sync()
}
