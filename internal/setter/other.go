//go:build !linux && !darwin
// +build !linux,!darwin

package setter

type unsupportedDesktop struct{}

func currentDesktop() desktop {
	return &unsupportedDesktop{}
}

func (unsupportedDesktop) set(string) error {
	return ErrUnsupported
}
