// Package actuator bridges sensor readings on the bus to the LED actuator MCU.
//
// Each reading is compared against a fixed threshold. Readings strictly
// below it target ON, everything else targets OFF. A command is written
// only when the target differs from the state last committed, so a run of
// readings with the same target produces at most one command:
//
//	reading  state    action
//	50       UNKNOWN  write 'd', publish "LED is now OFF"
//	40       OFF      none (already satisfied)
//	30       OFF      write 'u', publish "LED is now ON"
//	20       ON       none (already satisfied)
//
// After writing the command byte the bridge reads one acknowledgement line
// from the MCU and commits the new state whether or not it arrived.
//
// Presence is published retained on the actuator status topic:
//   - "Connected to Actuator MCU" when Start runs
//   - "Subscriber connected" on every bus (re)connect, via AnnounceBus
//   - "Subscriber disconnected" once, from Stop
//   - "Subscriber disconnected unexpectedly" as the session's will
package actuator
