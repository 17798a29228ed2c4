// Package history persists what LightLink did and saw.
//
// Two SQLite-backed repositories share the database opened by
// internal/infrastructure/database:
//   - CommandRepository: every opcode the actuator bridge wrote, with the
//     triggering reading and the MCU's acknowledgement
//   - MessageRepository: every message the bus monitor observed
//
// History is an observer. Recording failures are logged by the caller and
// never change bridge state or what is published on the bus.
package history
