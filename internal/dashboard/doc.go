// Package dashboard is the live GPU screen: the device, history and
// process panels, the help screen, the container that lays them out, and
// the main loop that feeds them input and redraws what changed.
//
// Panels read telemetry only through their snapshot pipelines. Background
// pollers stage snapshot lists; each panel's Poke swaps the latest list in
// on the foreground, so painting never waits on a device query.
//
// Every key and mouse binding resolves to an input.Action, and Apply is
// the single place actions change the shared State.
package dashboard
