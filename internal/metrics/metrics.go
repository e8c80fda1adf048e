package metrics

import "sync/atomic"

var recordsNormalized int64
var recordsFailed int64
var recordsQuarantined int64
var transformWarnings int64
var migrationsRun int64

func IncNormalized()  { atomic.AddInt64(&recordsNormalized, 1) }
func IncFailed()      { atomic.AddInt64(&recordsFailed, 1) }
func IncQuarantined() { atomic.AddInt64(&recordsQuarantined, 1) }
func IncMigrations()  { atomic.AddInt64(&migrationsRun, 1) }

func AddWarnings(n int) { atomic.AddInt64(&transformWarnings, int64(n)) }

func Snapshot() map[string]int64 {
	return map[string]int64{
		"records_normalized":  atomic.LoadInt64(&recordsNormalized),
		"records_failed":      atomic.LoadInt64(&recordsFailed),
		"records_quarantined": atomic.LoadInt64(&recordsQuarantined),
		"transform_warnings":  atomic.LoadInt64(&transformWarnings),
		"migrations_run":      atomic.LoadInt64(&migrationsRun),
	}
}
