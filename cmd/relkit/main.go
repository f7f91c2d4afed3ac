// Command relkit inspects and runs entity loads against a database.
//
// The entity registry is read from the YAML file named by the schema
// setting. Commands:
//   - explain: print the SQL a load would run, without a database
//   - query: run a load and print the entity graph as JSON
//
// Usage:
//
//	relkit [flags] <command>
package main

func main() {
	Execute()
}
