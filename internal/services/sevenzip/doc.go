// Package sevenzip wraps the 7-Zip command line tool.
//
// The client runs list, test, and extract against one archive path with one
// password candidate, collects the tool's output, and classifies the exit
// status. Listing output is parsed into the "key = value" attributes 7-Zip
// prints for each archive and the fixed-width file table framed by dashed
// rules. Volume discovery turns those attributes plus the file name into the
// set of split-archive members present on disk.
package sevenzip
