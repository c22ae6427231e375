package assets

import _ "embed"

// DefaultRules seeds the rule document on first boot, before the user
// has saved any rules of their own.
//go:embed default_rules.txt
var DefaultRules string
