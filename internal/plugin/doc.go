// Package plugin defines the step contract of the pipeline and the
// machinery that turns configured step maps into runnable steps.
//
// A Definition pairs a step name with a typed configuration and a
// constructor. Definitions are registered explicitly into a Registry by the
// host program; later registrations replace earlier ones with the same name.
// A Flow resolves every configured step up front and then executes them in
// order, one at a time. Loop steps build their own nested Flow from the same
// Registry.
package plugin
