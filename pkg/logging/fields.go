package logging

import (
	"time"

	"github.com/google/uuid"
)

func String(key, value string) Field     { return Field{Key: key, Value: value} }
func Int(key string, value int) Field     { return Field{Key: key, Value: value} }
func Uint64(key string, v uint64) Field   { return Field{Key: key, Value: v} }
func Float64(key string, v float64) Field { return Field{Key: key, Value: v} }
func Bool(key string, value bool) Field   { return Field{Key: key, Value: value} }
func Any(key string, value any) Field     { return Field{Key: key, Value: value} }

// Duration renders d as a Go duration string.
func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d.String()}
}

// Error records err under "error". A nil error is recorded as null.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Domain helpers.

func Component(name string) Field { return String("component", name) }

func Owner(id uuid.UUID) Field    { return String("owner", id.String()) }
func Neighbor(id uuid.UUID) Field { return String("neighbor", id.String()) }
func Node(id uuid.UUID) Field     { return String("node", id.String()) }

func Generation(gen uint64) Field { return Uint64("generation", gen) }

// Outcome labels how a background job ended (applied, stale, destroyed...).
func Outcome(o string) Field { return String("outcome", o) }

func Points(n int) Field { return Int("points", n) }

func Latency(d time.Duration) Field { return Duration("latency", d) }

func Count(n int) Field { return Int("count", n) }

func Addr(a string) Field { return String("addr", a) }
