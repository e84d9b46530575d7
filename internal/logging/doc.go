// Package logging provides leveled, printf-style logging on top of the
// standard log package.
//
// The level is taken from FITSCAT_LOG_LEVEL (debug, info, warn, error) or
// forced to debug with DEBUG=1. Output goes to stderr so stdout stays free
// for command results and the MCP protocol stream. When stderr is a
// terminal the level prefixes are colorized.
package logging
