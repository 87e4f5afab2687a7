// Package confloader loads layered configuration and watches files for changes.
//
// Load merges Layers in the order given:
//
//	c, err := confloader.Load(
//		confloader.Defaults(defaults),
//		confloader.File(path, true),
//		confloader.Env("LIBCAT_"),
//		confloader.Map("flags", flags),
//	)
//
// The Watcher reports settled changes to individual files; the console uses
// it to follow the persisted credential.
package confloader
