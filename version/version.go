// version.go - Versionskennung, wird beim Release-Build via ldflags gesetzt
package version

var Version string = "0.0.0"
