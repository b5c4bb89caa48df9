// Package lock serializes check-then-write sequences on shared scheduling resources.
package lock

import (
	"context"
	"errors"
	"sort"
)

// ErrUnavailable is returned when a key could not be acquired before the wait elapsed.
var ErrUnavailable = errors.New("lock: resource busy")

// Locker acquires a set of keys atomically from the caller's point of view. The returned
// release func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

// TeacherKey names the lock guarding a teacher's bookings.
func TeacherKey(id string) string { return "teacher:" + id }

// RoomKey names the lock guarding a room's bookings.
func RoomKey(id string) string { return "room:" + id }

// normalize sorts and de-duplicates keys so every caller acquires in the same order.
func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
