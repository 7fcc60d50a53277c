package serialmux

import (
	"go.bug.st/serial"
)

// NewRealFrameMux creates a FrameMux instance backed by a real serial port
// at the given path using the provided serial options. Stale input bytes
// are flushed so the decoder starts from live data, and a short read
// timeout is set so the monitor loop can react promptly to shutdown.
func NewRealFrameMux(path string, opts PortOptions) (*FrameMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(ReadPollInterval); err != nil {
		port.Close()
		return nil, err
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, err
	}

	return NewFrameMux[serial.Port](port), nil
}
