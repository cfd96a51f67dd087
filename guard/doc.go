// Package guard puts a seedbloom filter in front of a read path so that
// lookups for keys known not to exist never reach the backing store.
//
// Two policies are provided:
//
// [WhiteList] is preloaded with every valid key. A key the filter has never
// seen is reported absent without calling the read path. Keys created after
// the preload look absent until [WhiteList.Reload] rebuilds the filter.
//
// [BlackList] starts empty and records keys the read path reported missing.
// A recorded key is reported absent without calling the read path again.
// Because filters cannot forget, a key created after it was recorded stays
// short-circuited until [BlackList.Reset] replaces the filter. This is a
// known gap of the pattern; use it only where keys are not resurrected or
// where periodic resets are acceptable.
//
// Both guards expose Get with the same signature as the [Lookup] they wrap,
// so they can be stacked. Rebuilds never mutate the live filter: a new
// filter is populated off to the side and swapped in atomically.
//
// Guards log through logrus and report decisions, marks and preloads
// through OpenTelemetry; both default to the global providers.
package guard
