//go:build windows && (amd64 || arm64)

package hwcodec

import "syscall"

// purego has no Dlopen on Windows; the loader calls go through syscall and
// the resolved addresses are bound with purego.RegisterFunc as elsewhere.

func openLibrary(path string) (uintptr, error) {
	h, err := syscall.LoadLibrary(path)
	return uintptr(h), err
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return syscall.GetProcAddress(syscall.Handle(handle), name)
}

func closeLibrary(handle uintptr) {
	_ = syscall.FreeLibrary(syscall.Handle(handle))
}
