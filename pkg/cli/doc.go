// Package cli implements the pluginhost command-line interface.
//
// # Commands
//
// resolve: Run one resolution pass and print the load order, the excluded
// plugins with their reasons and the aggregated diagnostics
//
//	pluginhost resolve --plugin-dir ./plugins --build 241.15989
//	pluginhost resolve --only git,svn --json
//
// lookup: Resolve a resource name through a plugin's loading unit
//
//	pluginhost lookup git META-INF/plugin.xml
//
// validate: Check plugin.yaml descriptors for problems
//
//	pluginhost validate ./plugins/git ./plugins/svn
//
// serve: Resolve once and serve the read-only admin API
//
//	pluginhost serve --addr 127.0.0.1:8080
//
// # Configuration
//
// Settings come from PLUGINHOST_* environment variables, optionally loaded
// from a .env file (see pkg/config). Flags override the environment.
package cli
