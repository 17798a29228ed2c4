// Package serial provides line-oriented access to an MCU over a serial port.
//
// A Channel owns exactly one device handle opened with go.bug.st/serial.
// Both MCUs speak newline-terminated ASCII, so the channel exposes:
//   - ReadLine: bounded by the configured read timeout, keeps partial lines
//   - WriteByte: single-byte opcodes ('s', 'u', 'd')
//   - Close: idempotent, callable from a shutdown path
//
// # Usage
//
//	ch, err := serial.Open(serial.Config{
//	    Name:        "/dev/ttyACM0",
//	    BaudRate:    9600,
//	    ReadTimeout: time.Second,
//	})
//	if err != nil {
//	    return err // wraps serial.ErrChannelUnavailable
//	}
//	defer ch.Close()
//
//	line, ok, err := ch.ReadLine()
package serial
