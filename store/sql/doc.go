// Package sqlstore implements orchestration instance and step storage and
// the resolved result sink on bun, for sqlite and postgres.
package sqlstore
