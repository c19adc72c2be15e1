// Package plugins lists the plugins shipped with nosey.
package plugins

import (
	"nosey/internal/plugin"
	"nosey/internal/plugins/attrib"
	"nosey/internal/plugins/dbreport"
	"nosey/internal/plugins/failuredetail"
	"nosey/internal/plugins/logcapture"
	"nosey/internal/plugins/namefilter"
	"nosey/internal/plugins/phpunit"
	"nosey/internal/plugins/prof"
	"nosey/internal/plugins/testid"
)

// Builtin returns a fresh instance of every bundled plugin.
func Builtin() []plugin.Plugin {
	return []plugin.Plugin{
		logcapture.New(),
		failuredetail.New(),
		attrib.New(),
		namefilter.New(),
		testid.New(),
		prof.New(),
		phpunit.New(),
		dbreport.New(),
	}
}
