// Package preflight provides readiness checks for the filesystem paths a
// conversion run depends on.
//
// The convert and watch commands call RunAll before starting work so a
// missing output directory or a full disk surfaces up front instead of
// half-way through a long batch. The CLI also renders individual check
// results for display.
package preflight
