// Package app holds the start-up plumbing shared by the LightLink binaries:
// command line parsing, configuration and logger bootstrap, the MQTT
// session with presence callbacks, serial port opening and the optional
// history database.
package app
