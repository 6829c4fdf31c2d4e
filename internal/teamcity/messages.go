// Package teamcity emits TeamCity service messages on the build log.
//
// Service messages are single lines of the form
// ##teamcity[name attr='value' ...] that the server parses out of the
// console stream. Values use TeamCity's vertical-bar escaping.
package teamcity

import (
	"fmt"
	"io"
	"strings"
)

// escaper rewrites the characters TeamCity requires escaped in attribute
// values.
var escaper = strings.NewReplacer(
	"|", "||",
	"'", "|'",
	"\n", "|n",
	"\r", "|r",
	"[", "|[",
	"]", "|]",
)

// Escape escapes a service-message attribute value.
func Escape(value string) string {
	return escaper.Replace(value)
}

// ImportData instructs the server to import a report file, e.g. the NUnit
// XML the editor writes after a test run.
func ImportData(w io.Writer, kind, path string) error {
	_, err := fmt.Fprintf(w, "##teamcity[importData type='%s' path='%s']\n", Escape(kind), Escape(path))

	return err
}

// SetParameter publishes a configuration parameter to the build, used to
// expose every discovered installation as <prefix><version> -> path.
func SetParameter(w io.Writer, name, value string) error {
	_, err := fmt.Fprintf(w, "##teamcity[setParameter name='%s' value='%s']\n", Escape(name), Escape(value))

	return err
}

// Message emits a progress message on the build log.
func Message(w io.Writer, text string) error {
	_, err := fmt.Fprintf(w, "##teamcity[message text='%s']\n", Escape(text))

	return err
}
