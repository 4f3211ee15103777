// Package jobs is the jobs service client used by a device to discover,
// start and report progress on its job executions.
package jobs
