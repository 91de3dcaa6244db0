// Package cli provides the interactive cardkeeper command-line client.
//
// It wires configuration, local storage, the inventory services and an
// interactive REPL. On start the stored session is restored; commands that
// talk to the inventory service ask the user to log in when it is missing
// or expired.
//
// Key features:
//   - Login / Logout / Whoami
//   - Batch creation of inventory items from images, a directory or a zip
//   - Server-side archive jobs
//   - Show, add images to, save and deactivate a single item
//   - Browse the eBay aspects of a category
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or ctx is cancelled. See App and runREPL for details.
package cli
