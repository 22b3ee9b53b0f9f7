// Package generator turns automation requests into platform specific prompts
// and normalises the model's answer into a script, a synopsis and a filename.
//
// Each platform is a Generator variant registered in a Registry. Adding a
// platform means adding a variant; the dispatcher never changes.
package generator
