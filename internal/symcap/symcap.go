// Package symcap probes whether this process may create filesystem symlinks
// in its current environment (spec §4.8). The probe is pure-read: it never
// creates, removes, or modifies anything.
package symcap
