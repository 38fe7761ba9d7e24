// Package internal contains the implementation packages behind templhead.
//
// # Package Organization
//
// The render pipeline, in the order a pass runs:
//
//   - registry: ordered store of head declarations and change events
//   - value: resolves dynamic values inside a declaration
//   - tags: expansion into tag records, dedup keys, title templates, priority sort
//   - sanitize: strips unsafe attributes and escapes at serialisation
//   - plugins: hook points between the stages
//   - engine: runs one pass and produces a Result
//   - renderer: serialises a Result to strings for the initial page
//   - dom: reconciles a parsed document with a Result
//
// Around it:
//
//   - config: Viper-backed configuration with validation
//   - errors: structured errors shared by every package
//   - logging: structured logger over slog and charmbracelet/log
//   - loader: YAML declaration files kept registered with a Head
//   - watcher: debounced fsnotify watching of declaration files
//   - server: preview server with websocket live updates
//   - validation: origin and path checks
//   - version: build information
package internal
