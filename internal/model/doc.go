// Package model defines the shared data model for protocol analysis: the
// call-sequence graph handed over by a sequence provider, resolved element
// references, precision tiers, findings, and the final analysis report.
// Types here are provider-agnostic data carriers; nothing in this package
// performs analysis itself.
package model
